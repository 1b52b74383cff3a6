package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/exam-scheduler-api/internal/models"
)

// SeedSampleData fills an empty store with a small exam session starting the day after now:
// three rooms, three proctors, three unscheduled exams and half-day slots over three days.
func SeedSampleData(ctx context.Context, store *MemoryStore, now time.Time) error {
	y, m, d := now.Date()
	firstDay := time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	fullDay := func(day int) models.Interval {
		start := firstDay.AddDate(0, 0, day).Add(8 * time.Hour)
		return models.Interval{Start: start, End: start.Add(10 * time.Hour)}
	}

	rooms := []models.Room{
		{Name: "Amphi A", Capacity: 150},
		{Name: "Salle 103", Capacity: 50},
		{Name: "Labo L2", Capacity: 30},
	}
	for i := range rooms {
		if err := store.Rooms().Create(ctx, &rooms[i]); err != nil {
			return err
		}
	}

	proctors := []models.Proctor{
		{Name: "Dr. Sophie Martin", Department: models.DepartmentComputerScience, Availability: models.AvailabilityWindows{fullDay(0), fullDay(1), fullDay(2)}},
		{Name: "Prof. Jean Dupont", Department: models.DepartmentMathematics, Availability: models.AvailabilityWindows{fullDay(0), fullDay(1)}},
		{Name: "Dr. Laura Blanc", Department: models.DepartmentPhysics, Availability: models.AvailabilityWindows{fullDay(1), fullDay(2)}},
	}
	for i := range proctors {
		if err := store.Proctors().Create(ctx, &proctors[i]); err != nil {
			return err
		}
	}

	exams := []models.Exam{
		{Name: "Algorithmes et Structures de Données", Level: models.LevelL2, Department: models.DepartmentComputerScience, DurationMinutes: 150, Participants: 45},
		{Name: "Analyse Mathématique", Level: models.LevelL1, Department: models.DepartmentMathematics, DurationMinutes: 180, Participants: 120},
		{Name: "Mécanique Quantique", Level: models.LevelM1, Department: models.DepartmentPhysics, DurationMinutes: 240, Participants: 28},
	}
	for i := range exams {
		exams[i].CreatedAt = now.Add(time.Duration(i) * time.Second)
		if err := store.Exams().Create(ctx, &exams[i]); err != nil {
			return err
		}
	}

	var slots []models.TimeSlot
	for day := 0; day < 3; day++ {
		midnight := firstDay.AddDate(0, 0, day)
		for _, hour := range []int{8, 14} {
			start := midnight.Add(time.Duration(hour) * time.Hour)
			slots = append(slots, models.TimeSlot{ID: uuid.NewString(), StartTime: start, EndTime: start.Add(4 * time.Hour)})
		}
	}
	_, err := store.TimeSlots().BulkCreate(ctx, slots)
	return err
}
