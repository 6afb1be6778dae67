package services

import (
	"context"
	"log"
	"time"

	"al-huda-school/app/firesync"
)

// StartScheduler starts the background sync scheduler
func StartScheduler(ctx context.Context, svc *SyncService, retentionDays int) {
	go func() {
		log.Println("Sync scheduler started...")
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Println("Sync scheduler stopped")
				return
			case <-ticker.C:
				now := time.Now()

				// Trigger at 9:00 PM (21:00)
				if now.Hour() == 21 && now.Minute() == 0 {
					log.Println("Triggering scheduled sync [21:00]...")
					runNightlySync(ctx, svc, retentionDays)
				}
			}
		}
	}()
}

func runNightlySync(ctx context.Context, svc *SyncService, retentionDays int) {
	if _, err := svc.PushAll(ctx, "scheduler"); err != nil {
		log.Printf("Error pushing collections to replica: %v", err)
	}

	for _, entity := range []firesync.EntityType{firesync.EntityAttendance, firesync.EntityResults} {
		if _, err := svc.PullEntity(ctx, entity, "scheduler"); err != nil {
			log.Printf("Error pulling %s from replica: %v", entity, err)
		}
		if _, err := svc.Prune(ctx, entity, retentionDays, "scheduler"); err != nil {
			log.Printf("Error pruning %s: %v", entity, err)
		}
	}
}
