package realtime

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/embeddedstate/hsm"
)

// DefaultQueueCapacity is used when no explicit Config is supplied.
const DefaultQueueCapacity = 16

// Config tunes the runtime's OS resources. State graphs are never loaded
// from configuration; only the queue and worker parameters are.
type Config struct {
	// QueueCapacity bounds the event queue. An explicitly supplied Config
	// must set it to a positive value.
	QueueCapacity int `yaml:"queue_capacity" json:"queue_capacity"`

	// WorkerName names the worker task and derived OS resources. Defaults
	// to "hsm-worker-<instance id>".
	WorkerName string `yaml:"worker_name" json:"worker_name"`

	// Worker task parameters, passed through to the osal.Port. The native
	// goroutine host ignores them; RTOS hosts honor them.
	WorkerStackSize int           `yaml:"worker_stack_size" json:"worker_stack_size"`
	WorkerPriority  int           `yaml:"worker_priority" json:"worker_priority"`
	WorkerTimeslice time.Duration `yaml:"worker_timeslice" json:"worker_timeslice"`
}

func (c Config) validate() error {
	if c.QueueCapacity <= 0 {
		return fmt.Errorf("%w: queue capacity must be positive, got %d",
			hsm.ErrInvalidArgument, c.QueueCapacity)
	}
	return nil
}

// ParseConfig decodes a YAML configuration document and validates it.
func ParseConfig(data []byte) (Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("parse runtime config: %w", err)
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
