package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/demomiru/minicrm/internal/client/models"
)

// AddOrder prompts for order fields and saves a new order under a customer.
func (a *App) AddOrder(ctx context.Context) error {
	customerID, err := getSimpleText(a.reader, "Customer id", os.Stdout)
	if err != nil {
		return err
	}

	// the customer must exist locally before an order can reference it
	if _, err := a.customerService.GetCustomerByID(ctx, customerID); err != nil {
		printlnFn("Error:", err.Error())
		return err
	}

	title, err := getSimpleText(a.reader, "Order title", os.Stdout)
	if err != nil {
		return err
	}

	amountStr, err := getSimpleText(a.reader, "Amount", os.Stdout)
	if err != nil {
		return err
	}
	amount, err := strconv.ParseFloat(amountStr, 64)
	if err != nil || amount < 0 {
		printlnFn("Invalid amount:", amountStr)
		return fmt.Errorf("invalid amount %q", amountStr)
	}

	dateStr, err := getSimpleText(a.reader, "Order date (YYYY-MM-DD, empty for today)", os.Stdout)
	if err != nil {
		return err
	}
	orderDate := time.Now()
	if dateStr != "" {
		orderDate, err = time.Parse("2006-01-02", dateStr)
		if err != nil {
			printlnFn("Invalid date:", dateStr)
			return err
		}
	}

	o := &models.Order{
		Id:          models.NewOrderID(),
		CustomerId:  customerID,
		OrderTitle:  title,
		OrderAmount: amount,
		OrderDate:   orderDate.UnixMilli(),
	}

	msg, err := a.customerService.SaveOrder(ctx, o)
	if err != nil {
		printlnFn("Error:", err.Error())
		return err
	}
	printlnFn(msg)
	return nil
}

// DeleteOrder tombstones one order.
func (a *App) DeleteOrder(ctx context.Context) error {
	customerID, err := getSimpleText(a.reader, "Customer id", os.Stdout)
	if err != nil {
		return err
	}
	orderID, err := getSimpleText(a.reader, "Order id to delete", os.Stdout)
	if err != nil {
		return err
	}

	msg, err := a.customerService.DeleteOrder(ctx, customerID, orderID)
	if err != nil {
		printlnFn("Error:", err.Error())
		return err
	}
	printlnFn(msg)
	return nil
}
