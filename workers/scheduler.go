package workers

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"
)

// StartBroadcastScheduler schedules the daily broadcast with a cron
// expression ("0 8 * * *" for every morning at 8). An empty schedule
// disables it. Returns the running cron so main can Stop it on shutdown.
func StartBroadcastScheduler(service *BroadcastService, schedule, botID string) (*cron.Cron, error) {
	if schedule == "" {
		log.Printf("scheduler: no broadcast schedule configured, skipping")
		return nil, nil
	}

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		result, err := service.Run(context.Background(), botID)
		if err != nil {
			log.Printf("scheduler: broadcast for %s failed: %v", botID, err)
			return
		}
		log.Printf("scheduler: broadcast for %s finished with status %s", botID, result.Status)
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	log.Printf("scheduler: daily broadcast for %s scheduled at %q", botID, schedule)
	return c, nil
}
