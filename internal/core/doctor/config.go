package doctor

import (
	"context"
	"errors"

	"github.com/hay-kot/criterio"

	"github.com/JoCoor/flatfinder-client/internal/core/config"
)

// ConfigCheck validates the loaded configuration including file system
// access.
type ConfigCheck struct {
	cfg        *config.Config
	configPath string
}

// NewConfigCheck creates a new configuration check.
func NewConfigCheck(cfg *config.Config, configPath string) *ConfigCheck {
	return &ConfigCheck{cfg: cfg, configPath: configPath}
}

func (c *ConfigCheck) Name() string {
	return "Configuration"
}

func (c *ConfigCheck) Run(_ context.Context) Result {
	result := Result{Name: c.Name()}

	err := c.cfg.ValidateDeep(c.configPath)
	if err == nil {
		result.Items = append(result.Items,
			CheckItem{Label: "api", Status: StatusPass, Detail: c.cfg.API.BaseURL},
			CheckItem{Label: "push", Status: StatusPass, Detail: c.cfg.Realtime.URL},
			CheckItem{Label: "data dir", Status: StatusPass, Detail: c.cfg.DataDir},
		)
		return result
	}

	var fieldErrs criterio.FieldErrors
	if !errors.As(err, &fieldErrs) {
		result.Items = append(result.Items, CheckItem{Label: "config", Status: StatusFail, Detail: err.Error()})
		return result
	}
	for _, fe := range fieldErrs {
		result.Items = append(result.Items, CheckItem{
			Label:  fe.Field,
			Status: StatusFail,
			Detail: fe.Err.Error(),
		})
	}
	return result
}
