package models

// Level identifies an academic cohort. Exams sharing a level must never overlap.
type Level string

const (
	LevelL1 Level = "L1"
	LevelL2 Level = "L2"
	LevelL3 Level = "L3"
	LevelM1 Level = "M1"
	LevelM2 Level = "M2"
)

// Levels lists every supported academic level.
var Levels = []Level{LevelL1, LevelL2, LevelL3, LevelM1, LevelM2}

// Valid reports whether the level belongs to the enumerated set.
func (l Level) Valid() bool {
	for _, candidate := range Levels {
		if candidate == l {
			return true
		}
	}
	return false
}

// Department identifies the faculty department owning an exam or employing a proctor.
type Department string

const (
	DepartmentComputerScience Department = "computer_science"
	DepartmentMathematics     Department = "mathematics"
	DepartmentPhysics         Department = "physics"
	DepartmentChemistry       Department = "chemistry"
	DepartmentBiology         Department = "biology"
	DepartmentOther           Department = "other"
)

// Departments lists every supported department.
var Departments = []Department{
	DepartmentComputerScience,
	DepartmentMathematics,
	DepartmentPhysics,
	DepartmentChemistry,
	DepartmentBiology,
	DepartmentOther,
}

// Valid reports whether the department belongs to the enumerated set.
func (d Department) Valid() bool {
	for _, candidate := range Departments {
		if candidate == d {
			return true
		}
	}
	return false
}

// RoomStatus is a presentation projection of room occupancy.
type RoomStatus string

const (
	RoomStatusAvailable         RoomStatus = "available"
	RoomStatusPartiallyOccupied RoomStatus = "partially_occupied"
	RoomStatusOccupied          RoomStatus = "occupied"
)
