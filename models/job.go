package models

import "time"

// JobStatus is the lifecycle state of an automation job.
type JobStatus string

const (
	JobQueued  JobStatus = "queued"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFail    JobStatus = "fail"
	JobError   JobStatus = "error"
)

// Terminal reports whether no further transitions happen from s.
func (s JobStatus) Terminal() bool {
	return s == JobDone || s == JobFail || s == JobError
}

// JobKind names the automation a job runs.
type JobKind string

const (
	KindGris    JobKind = "gris"
	KindCrawler JobKind = "crawler"
)

// Job tracks one browser-automation run. OK stays nil until the job ends.
type Job struct {
	ID      string            `json:"id"`
	Kind    JobKind           `json:"kind"`
	Address string            `json:"address,omitempty"`
	Phone   string            `json:"phone,omitempty"`
	OK      *bool             `json:"ok"`
	Status  JobStatus         `json:"status"`
	TS      float64           `json:"ts"`
	Error   string            `json:"error,omitempty"`
	LandUse *LandUse          `json:"land_use,omitempty"`
	Steps   []StepResult      `json:"steps,omitempty"`
	Extra   map[string]string `json:"extra,omitempty"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// Clone returns a copy that shares no mutable state with j.
func (j *Job) Clone() Job {
	c := *j
	if j.OK != nil {
		ok := *j.OK
		c.OK = &ok
	}
	if j.LandUse != nil {
		lu := j.LandUse.Clone()
		c.LandUse = &lu
	}
	if j.Steps != nil {
		c.Steps = append([]StepResult(nil), j.Steps...)
	}
	if j.Extra != nil {
		c.Extra = make(map[string]string, len(j.Extra))
		for k, v := range j.Extra {
			c.Extra[k] = v
		}
	}
	return c
}

// Timestamp converts t to fractional unix seconds.
func Timestamp(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// LandUse is what could be read off the portal's land-use panel.
type LandUse struct {
	ImageURL string            `json:"image_url,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
}

// Clone deep-copies the field map.
func (l LandUse) Clone() LandUse {
	c := LandUse{ImageURL: l.ImageURL}
	if l.Fields != nil {
		c.Fields = make(map[string]string, len(l.Fields))
		for k, v := range l.Fields {
			c.Fields[k] = v
		}
	}
	return c
}

// StepResult records one scripted browser step.
type StepResult struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}
