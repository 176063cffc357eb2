package importer

import (
	"context"
	"strings"
	"testing"

	"github.com/minicrm/backend/internal/repositories/memory"
	"github.com/minicrm/backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newImporter() (*CustomerImporter, *memory.Store) {
	store := memory.NewStore()
	log := zap.NewNop()
	return NewCustomerImporter(
		services.NewCustomerService(store.Customers, store.Orders, log),
		services.NewOrderService(store.Orders, store.Customers, log),
		log,
	), store
}

func TestImport_CustomersAndOrders(t *testing.T) {
	imp, store := newImporter()
	ctx := context.Background()

	csv := `Full Name,Email Address,Mobile,Visits,Street,City,State,Zip Code,Country,Order Amount,Order Status
Ada Obi,ada@example.com,+234 801-234-5678,12,1 Main St,Lagos,LA,100001,NG,$250.50,delivered
Ben Ade,ben@example.com,,3,,,,,,,
Ada Again,ADA@example.com,,1,,,,,,,
X,bad-email,,,,,,,,,
Cy Eze,cy@example.com,,notanumber,2 Side St,Abuja,FC,900001,NG,40,
`
	result, err := imp.Import(ctx, strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, 5, result.TotalRows)
	assert.Equal(t, 3, result.CustomersCreated)
	assert.Equal(t, 1, result.CustomersSkipped)
	assert.Equal(t, 2, result.OrdersCreated)
	assert.Len(t, result.Errors, 2)

	count, err := store.Customers.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	customers, err := store.Customers.FindAll(ctx, 1, 10)
	require.NoError(t, err)
	var ada float64
	for _, c := range customers {
		if c.Email == "ada@example.com" {
			ada = c.TotalSpent
			assert.Equal(t, "2348012345678", c.Phone)
			assert.Equal(t, 12, c.Visits)
		}
	}
	assert.InDelta(t, 250.50, ada, 1e-9)
}

func TestImport_RequiresNameAndEmail(t *testing.T) {
	imp, _ := newImporter()

	_, err := imp.Import(context.Background(), strings.NewReader("Phone,City\n123,Lagos\n"))
	assert.Error(t, err)
}

func TestFindColumnIndex(t *testing.T) {
	header := []string{" Email ", "NAME"}
	assert.Equal(t, 0, findColumnIndex(header, []string{"email"}))
	assert.Equal(t, 1, findColumnIndex(header, []string{"Full Name", "Name"}))
	assert.Equal(t, -1, findColumnIndex(header, []string{"Phone"}))
}
