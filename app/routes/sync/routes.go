package sync

import (
	"al-huda-school/app/services"

	"github.com/gofiber/fiber/v2"
)

// SetupSyncRoutes registers the operator API for the replica sync engine
func SetupSyncRoutes(app *fiber.App, svc *services.SyncService) {
	api := app.Group("/api/sync")

	api.Post("/push", func(c *fiber.Ctx) error { return PushAllAPI(c, svc) })
	api.Post("/push/:entity", func(c *fiber.Ctx) error { return PushEntityAPI(c, svc) })
	api.Post("/pull/:entity", func(c *fiber.Ctx) error { return PullEntityAPI(c, svc) })
	api.Post("/prune/:entity", func(c *fiber.Ctx) error { return PruneAPI(c, svc) })
	api.Post("/purge/:entity", func(c *fiber.Ctx) error { return PurgeAPI(c, svc) })
	api.Get("/logs", func(c *fiber.Ctx) error { return GetSyncLogsAPI(c, svc) })

	api.Get("/registrations/pending", func(c *fiber.Ctx) error { return GetPendingRegistrationsAPI(c, svc) })
	api.Post("/registrations/:id/approve", func(c *fiber.Ctx) error { return ApproveRegistrationAPI(c, svc) })
	api.Post("/registrations/:id/reject", func(c *fiber.Ctx) error { return RejectRegistrationAPI(c, svc) })
}
