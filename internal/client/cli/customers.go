package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/demomiru/minicrm/internal/client/models"
)

func formatDate(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).Format("2006-01-02")
}

func printCustomer(c models.Customer) {
	printlnFn(fmt.Sprintf("%s  %-20s %-25s %-15s [%s]",
		c.Id, c.Name, c.Email, c.Company, c.SyncState))
}

// ListCustomers prints all non-deleted customers, newest first.
func (a *App) ListCustomers(ctx context.Context) error {
	cs, err := a.customerService.GetAllCustomers(ctx)
	if err != nil {
		printlnFn("Error:", err.Error())
		return err
	}
	if len(cs) == 0 {
		printlnFn("No customers yet")
		return nil
	}
	for _, c := range cs {
		printCustomer(c)
	}
	return nil
}

// AddCustomer prompts for customer fields and saves a new customer.
func (a *App) AddCustomer(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Name", os.Stdout)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Email", os.Stdout)
	if err != nil {
		return err
	}
	phone, err := getSimpleText(a.reader, "Phone", os.Stdout)
	if err != nil {
		return err
	}
	company, err := getSimpleText(a.reader, "Company", os.Stdout)
	if err != nil {
		return err
	}

	c := &models.Customer{
		Id:        models.NewCustomerID(),
		Name:      name,
		Email:     email,
		Phone:     phone,
		Company:   company,
		CreatedAt: time.Now().UnixMilli(),
	}

	msg, err := a.customerService.SaveCustomer(ctx, c)
	if err != nil {
		printlnFn("Error:", err.Error())
		return err
	}
	printlnFn(msg)
	return nil
}

// ShowCustomer prints one customer with its orders and aggregated stats.
func (a *App) ShowCustomer(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Enter customer id", os.Stdout)
	if err != nil {
		return err
	}

	cwo, err := a.customerService.GetCustomerWithOrders(ctx, id)
	if err != nil {
		printlnFn("Error:", err.Error())
		return err
	}

	c := cwo.Customer
	printlnFn("Name:   ", c.Name)
	printlnFn("Email:  ", c.Email)
	printlnFn("Phone:  ", c.Phone)
	printlnFn("Company:", c.Company)
	printlnFn("State:  ", string(c.SyncState))

	stats := a.customerService.GetCustomerStats(c.Id, cwo.Orders)
	last := "-"
	if stats.LastOrderDate != nil {
		last = formatDate(*stats.LastOrderDate)
	}
	printlnFn(fmt.Sprintf("Orders: %d, total %.2f, last %s", stats.OrderCount, stats.TotalSpent, last))

	for _, o := range cwo.Orders {
		printlnFn(fmt.Sprintf("  %s  %-30s %10.2f  %s [%s]",
			o.Id, o.OrderTitle, o.OrderAmount, formatDate(o.OrderDate), o.SyncState))
	}
	return nil
}

// DeleteCustomer tombstones one customer.
func (a *App) DeleteCustomer(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Enter customer id to delete", os.Stdout)
	if err != nil {
		return err
	}

	msg, err := a.customerService.DeleteCustomer(ctx, id)
	if err != nil {
		printlnFn("Error:", err.Error())
		return err
	}
	printlnFn(msg)
	return nil
}

// SearchCustomers prints customers matching a substring query.
func (a *App) SearchCustomers(ctx context.Context) error {
	query, err := getSimpleText(a.reader, "Search query", os.Stdout)
	if err != nil {
		return err
	}

	cs, err := a.customerService.SearchCustomers(ctx, query)
	if err != nil {
		printlnFn("Error:", err.Error())
		return err
	}
	if len(cs) == 0 {
		printlnFn("No matches")
		return nil
	}
	for _, c := range cs {
		printCustomer(c)
	}
	return nil
}
