package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/demomiru/minicrm/internal/client/services"
)

// Sync pushes all pending customers and orders to the server.
func (a *App) Sync(ctx context.Context) error {
	msg, err := a.customerService.SyncAllPendingData(ctx)
	if err != nil {
		printlnFn("Sync failed:", err.Error())
		return err
	}
	printlnFn(msg)
	return nil
}

// Purge physically removes locally tombstoned rows.
func (a *App) Purge(ctx context.Context) error {
	n, err := a.customerService.PurgeDeleted(ctx)
	if err != nil {
		printlnFn("Purge failed:", err.Error())
		return err
	}
	printlnFn(fmt.Sprintf("Removed %d deleted rows", n))
	return nil
}

// ImportDemo loads the bundled sample data set.
func (a *App) ImportDemo(ctx context.Context) error {
	nc, no, err := services.ImportDemoData(ctx, a.customerService, func() int64 {
		return time.Now().UnixMilli()
	})
	if err != nil {
		printlnFn("Import failed:", err.Error())
		return err
	}
	printlnFn(fmt.Sprintf("Imported %d customers and %d orders", nc, no))
	return nil
}
