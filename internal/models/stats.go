package models

// DashboardStats aggregates schedule health figures. Percentages are in the 0..100 range.
type DashboardStats struct {
	Totals              StatsTotals       `json:"totals"`
	RoomOccupation      float64           `json:"roomOccupation"`
	ProctorDistribution float64           `json:"proctorDistribution"`
	TimeSlotBalance     float64           `json:"timeSlotBalance"`
	ExamsByDepartment   []DepartmentShare `json:"examsByDepartment"`
	Rooms               []RoomUsage       `json:"rooms"`
	ProctorLoads        []ProctorLoad     `json:"proctorLoads"`
}

// StatsTotals holds headline counts.
type StatsTotals struct {
	Exams          int `json:"exams"`
	ScheduledExams int `json:"scheduledExams"`
	Rooms          int `json:"rooms"`
	Proctors       int `json:"proctors"`
	TimeSlots      int `json:"timeSlots"`
	FreeTimeSlots  int `json:"freeTimeSlots"`
	Conflicts      int `json:"conflicts"`
}

// DepartmentShare is the exam count of one department and its share of all exams.
type DepartmentShare struct {
	Department Department `json:"department"`
	Count      int        `json:"count"`
	Percentage float64    `json:"percentage"`
}

// ProctorLoad counts assignments per proctor.
type ProctorLoad struct {
	ProctorID   string     `json:"proctorId"`
	Name        string     `json:"name"`
	Department  Department `json:"department"`
	Assignments int        `json:"assignments"`
}
