package cron

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"parkwise/config"
	"parkwise/services/booking"
	"parkwise/utils"
)

const TypeNoShowSweep = "booking:sweep"

// InitNoShowSweeper runs the periodic no-show sweep in the background: a
// scheduler enqueues the sweep task at a fixed interval and a worker
// executes it. Overdue bookings also expire lazily on read, so a missed
// sweep only delays cleanup.
func InitNoShowSweeper(bookingSvc booking.BookingService) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 1,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeNoShowSweep, handleSweepTask(bookingSvc))

	interval := config.AppConfig.SweepIntervalMinute
	if interval <= 0 {
		interval = 5
	}
	scheduler := asynq.NewScheduler(redisOpts, &asynq.SchedulerOpts{})
	spec := fmt.Sprintf("@every %dm", interval)
	if _, err := scheduler.Register(spec, asynq.NewTask(TypeNoShowSweep, nil)); err != nil {
		log.Fatalf("[NoShowSweeper] failed to register sweep schedule: %v", err)
	}

	go func() {
		if err := scheduler.Run(); err != nil {
			log.Printf("[NoShowSweeper] scheduler stopped: %v", err)
		}
	}()

	go func() {
		log.Println("[NoShowSweeper] starting sweep worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[NoShowSweeper] attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[NoShowSweeper] max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
			} else {
				break
			}
		}
	}()
}

func handleSweepTask(bookingSvc booking.BookingService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		logger := utils.GetLogger()
		cancelled, err := bookingSvc.SweepNoShows(ctx)
		if err != nil {
			logger.Error("no-show sweep failed", zap.Error(err))
			return err
		}
		if cancelled > 0 {
			logger.Info("no-show sweep completed", zap.Int("cancelled", cancelled))
		}
		return nil
	}
}
