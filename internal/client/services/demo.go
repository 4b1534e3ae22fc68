package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/demomiru/minicrm/internal/client/models"

	_ "embed"
)

//go:embed demo_data.json
var demoData []byte

type demoSet struct {
	Customers []struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Phone   string `json:"phone"`
		Company string `json:"company"`
		Orders  []struct {
			OrderTitle  string  `json:"orderTitle"`
			OrderAmount float64 `json:"orderAmount"`
			OrderDate   int64   `json:"orderDate"`
		} `json:"orders"`
	} `json:"customers"`
}

// ImportDemoData loads the bundled sample set through the ordinary save path,
// so imported rows behave exactly like user-entered ones (PENDING until
// synced). Returns the number of customers and orders imported.
func ImportDemoData(ctx context.Context, svc CustomerService, now func() int64) (int, int, error) {
	var set demoSet
	if err := json.Unmarshal(demoData, &set); err != nil {
		return 0, 0, fmt.Errorf("failed to parse demo data: %w", err)
	}

	var nc, no int
	for _, dc := range set.Customers {
		c := &models.Customer{
			Id:        models.NewCustomerID(),
			Name:      dc.Name,
			Email:     dc.Email,
			Phone:     dc.Phone,
			Company:   dc.Company,
			CreatedAt: now(),
		}
		if _, err := svc.SaveCustomer(ctx, c); err != nil {
			return nc, no, err
		}
		nc++

		for _, do := range dc.Orders {
			o := &models.Order{
				Id:          models.NewOrderID(),
				CustomerId:  c.Id,
				OrderTitle:  do.OrderTitle,
				OrderAmount: do.OrderAmount,
				OrderDate:   do.OrderDate,
			}
			if _, err := svc.SaveOrder(ctx, o); err != nil {
				return nc, no, err
			}
			no++
		}
	}

	return nc, no, nil
}
