package catalog

// Job describes how to invoke a batch job. Entries are loaded from
// configuration at startup and never change at runtime.
type Job struct {
	ID               string            `mapstructure:"id" json:"id"`
	Name             string            `mapstructure:"name" json:"name"`
	Description      string            `mapstructure:"description" json:"description"`
	Enabled          bool              `mapstructure:"enabled" json:"enabled"`
	Command          string            `mapstructure:"command" json:"command"`
	Arguments        []string          `mapstructure:"arguments" json:"arguments"`
	Environment      map[string]string `mapstructure:"environment" json:"environment"`
	Timeout          int               `mapstructure:"timeout" json:"timeout"`
	WorkingDirectory string            `mapstructure:"working_directory" json:"working_directory"`
}

const (
	defaultTimeoutSeconds   = 60
	defaultWorkingDirectory = "./"
)

// Catalog is the read-only registry of job definitions.
type Catalog struct {
	jobs map[string]Job
	ids  []string
}

// New builds a catalog from configured jobs, applying defaults for missing
// timeout and working directory. Later entries with a duplicate id win.
func New(jobs []Job) *Catalog {
	c := &Catalog{jobs: make(map[string]Job, len(jobs))}
	for _, job := range jobs {
		if job.Timeout <= 0 {
			job.Timeout = defaultTimeoutSeconds
		}
		if job.WorkingDirectory == "" {
			job.WorkingDirectory = defaultWorkingDirectory
		}
		if _, exists := c.jobs[job.ID]; !exists {
			c.ids = append(c.ids, job.ID)
		}
		c.jobs[job.ID] = job
	}
	return c
}

// Get returns the job definition for the given id.
func (c *Catalog) Get(id string) (Job, bool) {
	job, ok := c.jobs[id]
	return job, ok
}

// Enabled returns all enabled job definitions in configuration order.
func (c *Catalog) Enabled() []Job {
	var enabled []Job
	for _, id := range c.ids {
		if job := c.jobs[id]; job.Enabled {
			enabled = append(enabled, job)
		}
	}
	return enabled
}
