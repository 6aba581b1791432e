package platforms

// Status is the lifecycle stage of a single platform within a session.
type Status string

const (
	StatusIdle           Status = "IDLE"
	StatusAnalyzingVideo Status = "ANALYZING_VIDEO"
	StatusGenerating     Status = "GENERATING"
	StatusReady          Status = "READY"
	StatusPublishing     Status = "PUBLISHING"
	StatusPublished      Status = "PUBLISHED"
	StatusError          Status = "ERROR"
)

// InFlight reports whether the status belongs to a running workflow.
func (s Status) InFlight() bool {
	switch s {
	case StatusAnalyzingVideo, StatusGenerating, StatusPublishing:
		return true
	}
	return false
}

// Metadata is the generated title, description and tags for one platform.
type Metadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// Clone returns a deep copy. Tags is never nil on the copy.
func (m Metadata) Clone() Metadata {
	tags := make([]string, len(m.Tags))
	copy(tags, m.Tags)
	m.Tags = tags
	return m
}

// MetadataPatch carries a partial edit. Nil fields are left untouched.
type MetadataPatch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
}

// Empty reports whether the patch names no field.
func (p MetadataPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Tags == nil
}

// Apply merges the patch into m and returns the result.
func (p MetadataPatch) Apply(m Metadata) Metadata {
	out := m.Clone()
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Tags != nil {
		tags := make([]string, len(*p.Tags))
		copy(tags, *p.Tags)
		out.Tags = tags
	}
	return out
}

// RunState is the per-session state of one platform.
type RunState struct {
	Platform ID       `json:"id"`
	Name     string   `json:"name"`
	Status   Status   `json:"status"`
	Data     Metadata `json:"data"`
	Error    string   `json:"error,omitempty"`
}

// Clone returns a deep copy of the state.
func (s RunState) Clone() RunState {
	s.Data = s.Data.Clone()
	return s
}

// InitialStates returns an Idle state with empty metadata for every platform.
func InitialStates() []RunState {
	out := make([]RunState, 0, len(catalogue))
	for _, p := range catalogue {
		out = append(out, RunState{
			Platform: p.ID,
			Name:     p.Name,
			Status:   StatusIdle,
			Data:     Metadata{Tags: []string{}},
		})
	}
	return out
}
