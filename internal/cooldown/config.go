package cooldown

import (
	"time"

	"github.com/ppiankov/drivewatch/internal/model"
)

// DefaultWindow is how long an accepted action name stays blocked.
const DefaultWindow = 5 * time.Second

// Config defines the cooldown window and the names it never applies to.
// log_safety_event and request_safe_mode are exempt whatever Exempt lists.
type Config struct {
	Window time.Duration `mapstructure:"cooldown" yaml:"cooldown"`
	Exempt []string      `mapstructure:"exempt" yaml:"exempt"`
}

// DefaultConfig exempts the logging action and the safe-mode request.
func DefaultConfig() Config {
	return Config{
		Window: DefaultWindow,
		Exempt: []string{model.ActLogSafetyEvent, model.ActRequestSafeMode},
	}
}

// alwaysExempt is the minimum exempt set.
var alwaysExempt = []string{model.ActLogSafetyEvent, model.ActRequestSafeMode}

func (c Config) exemptSet() map[string]bool {
	set := make(map[string]bool, len(c.Exempt)+len(alwaysExempt))
	for _, name := range alwaysExempt {
		set[name] = true
	}
	for _, name := range c.Exempt {
		set[name] = true
	}
	return set
}
