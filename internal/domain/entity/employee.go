package entity

// Employee is a directory record. The engine only reads employees; the
// directory itself is maintained elsewhere.
type Employee struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	PreferredName string `json:"preferred_name,omitempty"`
	SupervisorID  string `json:"supervisor_id,omitempty"`
	Position      string `json:"position,omitempty"`
	Role          string `json:"role,omitempty"`
	Email         string `json:"email,omitempty"`
}

// DisplayName returns the preferred name when one is set
func (e *Employee) DisplayName() string {
	if e.PreferredName != "" {
		return e.PreferredName
	}
	return e.Name
}

// HasSupervisor reports whether the employee has a supervisor assigned
func (e *Employee) HasSupervisor() bool {
	return e.SupervisorID != ""
}
