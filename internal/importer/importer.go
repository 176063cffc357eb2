// Package importer loads customers and their orders from CSV exports.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/minicrm/backend/internal/models"
	"github.com/minicrm/backend/internal/services"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// Result summarises one import run
type Result struct {
	TotalRows        int      `json:"totalRows"`
	CustomersCreated int      `json:"customersCreated"`
	CustomersSkipped int      `json:"customersSkipped"`
	OrdersCreated    int      `json:"ordersCreated"`
	Errors           []string `json:"errors"`
}

func (r *Result) errorf(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf("Row %d: ", r.TotalRows)+fmt.Sprintf(format, args...))
}

// CustomerImporter creates customers, and optionally one order per row,
// through the services so that the usual validation applies.
type CustomerImporter struct {
	customers services.CustomerService
	orders    services.OrderService
	log       *zap.Logger
}

// NewCustomerImporter creates a new CustomerImporter
func NewCustomerImporter(customers services.CustomerService, orders services.OrderService, log *zap.Logger) *CustomerImporter {
	return &CustomerImporter{customers: customers, orders: orders, log: log}
}

type columns struct {
	name, email, phone, visits        int
	street, city, state, zip, country int
	amount, item, status              int
}

func mapColumns(header []string) columns {
	return columns{
		name:    findColumnIndex(header, []string{"Name", "Customer Name", "Full Name"}),
		email:   findColumnIndex(header, []string{"Email", "Email Address", "E-mail"}),
		phone:   findColumnIndex(header, []string{"Phone", "Phone Number", "Mobile"}),
		visits:  findColumnIndex(header, []string{"Visits", "Visit Count"}),
		street:  findColumnIndex(header, []string{"Street", "Address"}),
		city:    findColumnIndex(header, []string{"City"}),
		state:   findColumnIndex(header, []string{"State", "Region"}),
		zip:     findColumnIndex(header, []string{"Zip", "Zip Code", "Postal Code"}),
		country: findColumnIndex(header, []string{"Country"}),
		amount:  findColumnIndex(header, []string{"Order Amount", "Amount", "Total"}),
		item:    findColumnIndex(header, []string{"Item", "Product"}),
		status:  findColumnIndex(header, []string{"Order Status", "Status"}),
	}
}

// Import reads a CSV with a header row from r. Row-level problems are
// collected in the result; only unreadable input returns an error.
func (i *CustomerImporter) Import(ctx context.Context, r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	cols := mapColumns(header)
	if cols.name == -1 || cols.email == -1 {
		return nil, errors.New("name and email columns are required")
	}

	result := &Result{Errors: []string{}}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		result.TotalRows++
		if err != nil {
			result.errorf("failed to read row: %v", err)
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
		i.importRow(ctx, cols, row, result)
	}

	i.log.Info("customer import finished",
		zap.Int("rows", result.TotalRows),
		zap.Int("customersCreated", result.CustomersCreated),
		zap.Int("customersSkipped", result.CustomersSkipped),
		zap.Int("ordersCreated", result.OrdersCreated),
		zap.Int("errors", len(result.Errors)))
	return result, nil
}

func (i *CustomerImporter) importRow(ctx context.Context, cols columns, row []string, result *Result) {
	in := services.CustomerInput{
		Name:  cell(row, cols.name),
		Email: cell(row, cols.email),
		Phone: cleanPhone(cell(row, cols.phone)),
	}
	if v := cell(row, cols.visits); v != "" {
		visits, err := cast.ToIntE(v)
		if err != nil {
			result.errorf("invalid visits %q", v)
		} else {
			in.Visits = &visits
		}
	}
	address := models.Address{
		Street:  cell(row, cols.street),
		City:    cell(row, cols.city),
		State:   cell(row, cols.state),
		ZipCode: cell(row, cols.zip),
		Country: cell(row, cols.country),
	}
	complete := address.Street != "" && address.City != "" && address.State != "" && address.ZipCode != "" && address.Country != ""
	if complete {
		in.Address = &address
	}

	customer, err := i.customers.CreateCustomer(ctx, in)
	switch {
	case errors.Is(err, services.ErrDuplicate):
		result.CustomersSkipped++
		return
	case err != nil:
		result.errorf("failed to create customer: %v", err)
		return
	}
	result.CustomersCreated++

	raw := cell(row, cols.amount)
	if raw == "" {
		return
	}
	amount, err := cast.ToFloat64E(strings.TrimPrefix(raw, "$"))
	if err != nil || amount <= 0 {
		result.errorf("invalid order amount %q", raw)
		return
	}
	if !complete {
		result.errorf("order skipped: customer has no complete address")
		return
	}

	item := cell(row, cols.item)
	if item == "" {
		item = "Imported order"
	}
	_, err = i.orders.CreateOrder(ctx, services.OrderInput{
		CustomerID:      customer.ID.Hex(),
		Items:           []models.OrderItem{{Name: item, Quantity: 1, Price: amount}},
		ShippingAddress: address,
		Status:          models.OrderStatus(strings.ToLower(cell(row, cols.status))),
	})
	if err != nil {
		result.errorf("failed to create order: %v", err)
		return
	}
	result.OrdersCreated++
}

// findColumnIndex returns the index of the first header matching one of
// possibleNames, ignoring case and surrounding spaces, or -1
func findColumnIndex(header []string, possibleNames []string) int {
	for i, column := range header {
		for _, name := range possibleNames {
			if strings.EqualFold(strings.TrimSpace(column), name) {
				return i
			}
		}
	}
	return -1
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// cleanPhone strips the separators commonly found in exported numbers
func cleanPhone(phone string) string {
	return strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", "+", "").Replace(phone)
}
