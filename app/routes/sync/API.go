package sync

import (
	"errors"
	"strconv"

	"al-huda-school/app/firesync"
	"al-huda-school/app/services"

	"github.com/gofiber/fiber/v2"
)

// initiatedBy identifies the caller for the sync audit log
func initiatedBy(c *fiber.Ctx) string {
	if by := c.Get("X-Initiated-By"); by != "" {
		return by
	}
	return "operator"
}

func entityParam(c *fiber.Ctx) (firesync.EntityType, error) {
	entity := firesync.EntityType(c.Params("entity"))
	if !entity.Valid() {
		return "", fiber.NewError(fiber.StatusBadRequest, "unknown entity type: "+c.Params("entity"))
	}
	return entity, nil
}

// PushAllAPI triggers a full push of all authoritative collections
func PushAllAPI(c *fiber.Ctx, svc *services.SyncService) error {
	res, err := svc.PushAll(c.Context(), initiatedBy(c))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
			"result":  res,
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"result":  res,
	})
}

// PushEntityAPI triggers a push of one authoritative collection
func PushEntityAPI(c *fiber.Ctx, svc *services.SyncService) error {
	entity, err := entityParam(c)
	if err != nil {
		return err
	}

	res, err := svc.PushEntity(c.Context(), entity, initiatedBy(c))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
			"result":  res,
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"result":  res,
	})
}

// PullEntityAPI drains replica-originated records into PostgreSQL
func PullEntityAPI(c *fiber.Ctx, svc *services.SyncService) error {
	entity, err := entityParam(c)
	if err != nil {
		return err
	}

	res, err := svc.PullEntity(c.Context(), entity, initiatedBy(c))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
			"result":  res,
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"result":  res,
	})
}

// PruneAPI deletes synced replica records older than the retention window
func PruneAPI(c *fiber.Ctx, svc *services.SyncService) error {
	entity, err := entityParam(c)
	if err != nil {
		return err
	}
	days, err := strconv.Atoi(c.Query("days", "90"))
	if err != nil || days < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "days must be a non-negative integer")
	}

	deleted, err := svc.Prune(c.Context(), entity, days, initiatedBy(c))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
			"deleted": deleted,
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"deleted": deleted,
	})
}

// PurgeAPI unconditionally empties a replica collection
func PurgeAPI(c *fiber.Ctx, svc *services.SyncService) error {
	entity, err := entityParam(c)
	if err != nil {
		return err
	}
	if c.Query("confirm") != string(entity) {
		return fiber.NewError(fiber.StatusBadRequest, "purge requires confirm=<entity> query parameter")
	}

	deleted, err := svc.Purge(c.Context(), entity, initiatedBy(c))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
			"deleted": deleted,
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"deleted": deleted,
	})
}

// GetSyncLogsAPI returns the most recent sync runs for dashboards
func GetSyncLogsAPI(c *fiber.Ctx, svc *services.SyncService) error {
	limit, err := strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "limit must be a positive integer")
	}

	logs, err := svc.RecentLogs(c.Context(), limit)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"logs":    logs,
	})
}

// GetPendingRegistrationsAPI lists teacher registrations awaiting review
func GetPendingRegistrationsAPI(c *fiber.Ctx, svc *services.SyncService) error {
	docs, err := svc.Registrar().Pending(c.Context())
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	registrations := make([]fiber.Map, 0, len(docs))
	for _, d := range docs {
		registrations = append(registrations, fiber.Map{
			"id":   d.ID,
			"data": d.Data,
		})
	}
	return c.JSON(fiber.Map{
		"success":       true,
		"registrations": registrations,
	})
}

// ApproveRegistrationAPI approves a pending teacher registration
func ApproveRegistrationAPI(c *fiber.Ctx, svc *services.SyncService) error {
	err := svc.Registrar().Approve(c.Context(), c.Params("id"), initiatedBy(c))
	if err != nil {
		return registrationError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// RejectRegistrationAPI rejects a pending teacher registration
func RejectRegistrationAPI(c *fiber.Ctx, svc *services.SyncService) error {
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&body); err != nil && len(c.Body()) > 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	err := svc.Registrar().Reject(c.Context(), c.Params("id"), initiatedBy(c), body.Reason)
	if err != nil {
		return registrationError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

func registrationError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if errors.Is(err, firesync.ErrAlreadyReviewed) {
		code = fiber.StatusConflict
	} else if errors.Is(err, firesync.ErrNotFound) {
		code = fiber.StatusNotFound
	}
	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
	})
}
