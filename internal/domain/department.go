package domain

import "time"

// DepartmentCodeMaxLen bounds Department.Code.
const DepartmentCodeMaxLen = 10

// Department is an organizational unit requests are filed against.
type Department struct {
	ID        int64
	Name      string
	Code      string
	Manager   string
	CreatedAt time.Time
}

// DepartmentWithCount carries the number of requests referencing a department by name.
type DepartmentWithCount struct {
	Department
	RequestCount int64
}

// SyncResult summarizes one directory sync run.
type SyncResult struct {
	Created    int       `json:"created"`
	Updated    int       `json:"updated"`
	Skipped    int       `json:"skipped"`
	FinishedAt time.Time `json:"finished_at"`
}
