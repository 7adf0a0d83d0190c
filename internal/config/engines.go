package config

import (
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

var engineNames = map[string]api.EngineName{
	"chrome":  api.EngineChrome,
	"edge":    api.EngineEdge,
	"firefox": api.EngineFirefox,
	"ios":     api.EngineIOS,
	"safari":  api.EngineSafari,
	"opera":   api.EngineOpera,
	"ie":      api.EngineIE,
}

// Engines converts Browsers into esbuild engine targets.
//
//	"chrome130" → {Name: EngineChrome, Version: "130"}
//	"safari17.2" → {Name: EngineSafari, Version: "17.2"}
func (c Config) Engines() ([]api.Engine, error) {
	engines := make([]api.Engine, 0, len(c.Browsers))
	for _, b := range c.Browsers {
		e, err := parseEngine(b)
		if err != nil {
			return nil, err
		}
		engines = append(engines, e)
	}
	return engines, nil
}

func parseEngine(s string) (api.Engine, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	i := strings.IndexFunc(s, func(r rune) bool { return r >= '0' && r <= '9' })
	if i <= 0 {
		return api.Engine{}, fmt.Errorf("browser target %q: expected <engine><version>, e.g. chrome130", s)
	}
	name, ok := engineNames[s[:i]]
	if !ok {
		return api.Engine{}, fmt.Errorf("browser target %q: unknown engine %q", s, s[:i])
	}
	return api.Engine{Name: name, Version: s[i:]}, nil
}
