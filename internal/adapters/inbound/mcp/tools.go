package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/shopspring/decimal"

	"github.com/abdidvp/ordersvc/internal/application"
	"github.com/abdidvp/ordersvc/internal/domain"
)

type handlers struct {
	orders  *application.OrderService
	catalog *application.CatalogService
}

// registerTools registers all ordersvc MCP tools on the given server.
func registerTools(s *server.MCPServer, h *handlers) {
	s.AddTool(
		mcplib.NewTool("ordersvc_place_order",
			mcplib.WithDescription("Place an order for a customer. Stock is checked and decremented atomically; the whole order is rejected if any product is missing or short."),
			mcplib.WithString("customer_id",
				mcplib.Required(),
				mcplib.Description("Id of the ordering customer"),
			),
			mcplib.WithArray("items",
				mcplib.Required(),
				mcplib.Description("Requested products, e.g. [{\"product_id\": \"...\", \"quantity\": 2}]"),
				mcplib.Items(map[string]any{
					"type": "object",
					"properties": map[string]any{
						"product_id": map[string]any{"type": "string"},
						"quantity":   map[string]any{"type": []string{"number", "string"}},
					},
					"required": []string{"product_id", "quantity"},
				}),
			),
		),
		h.placeOrder,
	)

	s.AddTool(
		mcplib.NewTool("ordersvc_get_order",
			mcplib.WithDescription("Returns an order with its line items"),
			mcplib.WithString("order_id",
				mcplib.Required(),
				mcplib.Description("Order id"),
			),
			mcplib.WithReadOnlyHintAnnotation(true),
		),
		h.getOrder,
	)

	s.AddTool(
		mcplib.NewTool("ordersvc_list_products",
			mcplib.WithDescription("Returns the product catalog with prices and stock"),
			mcplib.WithReadOnlyHintAnnotation(true),
		),
		h.listProducts,
	)

	s.AddTool(
		mcplib.NewTool("ordersvc_add_product",
			mcplib.WithDescription("Add a product to the catalog"),
			mcplib.WithString("name", mcplib.Required(), mcplib.Description("Product name")),
			mcplib.WithString("price", mcplib.Required(), mcplib.Description("Unit price as a decimal string, e.g. \"9.99\"")),
			mcplib.WithString("quantity", mcplib.Description("Initial stock, defaults to 0")),
		),
		h.addProduct,
	)

	s.AddTool(
		mcplib.NewTool("ordersvc_register_customer",
			mcplib.WithDescription("Register a customer who can place orders"),
			mcplib.WithString("name", mcplib.Required(), mcplib.Description("Customer name")),
			mcplib.WithString("email", mcplib.Description("Optional email address")),
		),
		h.registerCustomer,
	)

	s.AddTool(
		mcplib.NewTool("ordersvc_restock",
			mcplib.WithDescription("Add stock to an existing product"),
			mcplib.WithString("product_id", mcplib.Required(), mcplib.Description("Product id")),
			mcplib.WithString("quantity", mcplib.Required(), mcplib.Description("Quantity to add, e.g. \"10\"")),
		),
		h.restock,
	)
}

func (h *handlers) placeOrder(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	customerID, err := request.RequireString("customer_id")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	items, err := parseItems(request.GetArguments()["items"])
	if err != nil {
		return errorResult(err.Error()), nil
	}

	order, err := h.orders.PlaceOrder(ctx, domain.PlaceOrderRequest{CustomerID: customerID, Items: items})
	if err != nil {
		return domainError(err), nil
	}
	return jsonResult(order)
}

func (h *handlers) getOrder(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	id, err := request.RequireString("order_id")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	order, err := h.orders.GetOrder(ctx, id)
	if err != nil {
		return domainError(err), nil
	}
	return jsonResult(order)
}

func (h *handlers) listProducts(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	products, err := h.catalog.ListProducts(ctx)
	if err != nil {
		return domainError(err), nil
	}
	if products == nil {
		products = []domain.Product{}
	}
	return jsonResult(products)
}

func (h *handlers) addProduct(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	priceStr, err := request.RequireString("price")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return errorResult(fmt.Sprintf("invalid price %q", priceStr)), nil
	}
	quantity := decimal.Zero
	if q := request.GetString("quantity", ""); q != "" {
		if quantity, err = decimal.NewFromString(q); err != nil {
			return errorResult(fmt.Sprintf("invalid quantity %q", q)), nil
		}
	}

	product, err := h.catalog.AddProduct(ctx, name, price, quantity)
	if err != nil {
		return domainError(err), nil
	}
	return jsonResult(product)
}

func (h *handlers) registerCustomer(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	customer, err := h.catalog.RegisterCustomer(ctx, name, request.GetString("email", ""))
	if err != nil {
		return domainError(err), nil
	}
	return jsonResult(customer)
}

func (h *handlers) restock(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	id, err := request.RequireString("product_id")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	qStr, err := request.RequireString("quantity")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	quantity, err := decimal.NewFromString(qStr)
	if err != nil {
		return errorResult(fmt.Sprintf("invalid quantity %q", qStr)), nil
	}

	product, err := h.catalog.Restock(ctx, id, quantity)
	if err != nil {
		return domainError(err), nil
	}
	return jsonResult(product)
}

// parseItems accepts the JSON-decoded items argument. Quantities may be
// numbers or decimal strings.
func parseItems(raw any) ([]domain.RequestedItem, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("items must be an array of {product_id, quantity}")
	}

	items := make([]domain.RequestedItem, 0, len(list))
	for i, entry := range list {
		obj, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("items[%d] must be an object", i)
		}
		id, _ := obj["product_id"].(string)
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("items[%d].product_id is required", i)
		}
		q, err := parseQuantity(obj["quantity"])
		if err != nil {
			return nil, fmt.Errorf("items[%d].quantity: %w", i, err)
		}
		items = append(items, domain.RequestedItem{ProductID: id, Quantity: q})
	}
	return items, nil
}

func parseQuantity(v any) (decimal.Decimal, error) {
	switch q := v.(type) {
	case float64:
		return decimal.NewFromFloat(q), nil
	case string:
		return decimal.NewFromString(q)
	case json.Number:
		return decimal.NewFromString(q.String())
	case nil:
		return decimal.Decimal{}, fmt.Errorf("missing")
	default:
		return decimal.Decimal{}, fmt.Errorf("unsupported type %T", v)
	}
}

// domainError reports a workflow error as "Kind: message".
func domainError(err error) *mcplib.CallToolResult {
	return errorResult(domain.ErrorKind(err) + ": " + err.Error())
}

// jsonResult marshals v to JSON and returns it as a text content result.
func jsonResult(v any) (*mcplib.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(string(data))},
	}, nil
}

// errorResult returns a tool result that indicates an error occurred.
func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(msg)},
		IsError: true,
	}
}
