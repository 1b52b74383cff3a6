package service

import (
	"context"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/exam-scheduler-api/internal/models"
	"github.com/noah-isme/exam-scheduler-api/internal/scheduler"
)

// StatsService computes dashboard figures from the committed schedule.
type StatsService struct {
	store  snapshotReader
	cache  *CacheService
	logger *zap.Logger
	ttl    time.Duration
}

// NewStatsService constructs the stats service.
func NewStatsService(store snapshotReader, cache *CacheService, logger *zap.Logger, ttl time.Duration) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{store: store, cache: cache, logger: logger, ttl: ttl}
}

// Get returns dashboard stats, served from cache when fresh.
func (s *StatsService) Get(ctx context.Context) (*models.DashboardStats, error) {
	var cached models.DashboardStats
	if hit, err := s.cache.Get(ctx, CacheKeyStats, &cached); err == nil && hit {
		return &cached, nil
	}

	snapshot, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, translateStoreError(err, "")
	}
	stats := ComputeStats(snapshot)
	_ = s.cache.Set(ctx, CacheKeyStats, stats, s.ttl)
	return stats, nil
}

// ComputeStats derives every dashboard figure from one snapshot.
func ComputeStats(snapshot *models.Snapshot) *models.DashboardStats {
	stats := &models.DashboardStats{
		ExamsByDepartment: []models.DepartmentShare{},
		Rooms:             make([]models.RoomUsage, 0, len(snapshot.Rooms)),
		ProctorLoads:      make([]models.ProctorLoad, 0, len(snapshot.Proctors)),
	}
	totals := &stats.Totals
	totals.Exams = len(snapshot.Exams)
	totals.Rooms = len(snapshot.Rooms)
	totals.Proctors = len(snapshot.Proctors)
	totals.TimeSlots = len(snapshot.TimeSlots)
	for _, slot := range snapshot.TimeSlots {
		if !slot.Consumed() {
			totals.FreeTimeSlots++
		}
	}
	totals.Conflicts = len(scheduler.DetectConflicts(snapshot.Exams))

	byDepartment := make(map[models.Department]int)
	examsInRoom := make(map[string][]models.Exam)
	assignments := make(map[string]int)
	for _, exam := range snapshot.Exams {
		byDepartment[exam.Department]++
		if !exam.Scheduled() {
			continue
		}
		totals.ScheduledExams++
		examsInRoom[*exam.RoomID] = append(examsInRoom[*exam.RoomID], exam)
		for _, proctorID := range exam.ProctorIDs {
			assignments[proctorID]++
		}
	}

	usedRooms := 0
	for _, room := range snapshot.Rooms {
		usage := roomUsage(room, examsInRoom[room.ID])
		if usage.ScheduledExams > 0 {
			usedRooms++
		}
		stats.Rooms = append(stats.Rooms, usage)
	}
	sort.Slice(stats.Rooms, func(i, j int) bool { return stats.Rooms[i].Name < stats.Rooms[j].Name })

	busyProctors := 0
	for _, proctor := range snapshot.Proctors {
		load := assignments[proctor.ID]
		if load > 0 {
			busyProctors++
		}
		stats.ProctorLoads = append(stats.ProctorLoads, models.ProctorLoad{
			ProctorID:   proctor.ID,
			Name:        proctor.Name,
			Department:  proctor.Department,
			Assignments: load,
		})
	}
	sort.Slice(stats.ProctorLoads, func(i, j int) bool {
		if stats.ProctorLoads[i].Assignments != stats.ProctorLoads[j].Assignments {
			return stats.ProctorLoads[i].Assignments > stats.ProctorLoads[j].Assignments
		}
		return stats.ProctorLoads[i].ProctorID < stats.ProctorLoads[j].ProctorID
	})

	for department, count := range byDepartment {
		stats.ExamsByDepartment = append(stats.ExamsByDepartment, models.DepartmentShare{
			Department: department,
			Count:      count,
			Percentage: percentage(count, totals.Exams),
		})
	}
	sort.Slice(stats.ExamsByDepartment, func(i, j int) bool {
		if stats.ExamsByDepartment[i].Count != stats.ExamsByDepartment[j].Count {
			return stats.ExamsByDepartment[i].Count > stats.ExamsByDepartment[j].Count
		}
		return stats.ExamsByDepartment[i].Department < stats.ExamsByDepartment[j].Department
	})

	stats.RoomOccupation = percentage(usedRooms, totals.Rooms)
	stats.ProctorDistribution = percentage(busyProctors, totals.Proctors)
	stats.TimeSlotBalance = percentage(totals.TimeSlots-totals.FreeTimeSlots, totals.TimeSlots)
	return stats
}

// roomUsage averages seat fill over the room's scheduled exams.
func roomUsage(room models.Room, exams []models.Exam) models.RoomUsage {
	usage := models.RoomUsage{Room: room, ScheduledExams: len(exams), Status: models.RoomStatusAvailable}
	if len(exams) == 0 || room.Capacity <= 0 {
		return usage
	}
	var fill float64
	for _, exam := range exams {
		fill += float64(exam.Participants) / float64(room.Capacity)
	}
	usage.OccupancyRate = round2(fill / float64(len(exams)) * 100)
	if usage.OccupancyRate >= 100 {
		usage.Status = models.RoomStatusOccupied
	} else {
		usage.Status = models.RoomStatusPartiallyOccupied
	}
	return usage
}

func percentage(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return round2(float64(part) / float64(whole) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
