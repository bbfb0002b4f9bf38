package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/abdidvp/ordersvc/internal/domain"
)

const (
	productsURI    = "ordersvc://products"
	orderURIPrefix = "ordersvc://orders/"
)

// registerResources registers the read-only catalog and order resources.
func registerResources(s *server.MCPServer, h *handlers) {
	s.AddResource(
		mcplib.NewResource(
			productsURI,
			"Product Catalog",
			mcplib.WithResourceDescription("All products with price and current stock"),
			mcplib.WithMIMEType("application/json"),
		),
		h.productsResource,
	)

	s.AddResourceTemplate(
		mcplib.NewResourceTemplate(
			orderURIPrefix+"{id}",
			"Order",
			mcplib.WithTemplateDescription("A placed order with its line items"),
			mcplib.WithTemplateMIMEType("application/json"),
		),
		h.orderResource,
	)
}

func (h *handlers) productsResource(ctx context.Context, _ mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	products, err := h.catalog.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	if products == nil {
		products = []domain.Product{}
	}
	return jsonContents(productsURI, products)
}

func (h *handlers) orderResource(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	uri := request.Params.URI
	id := strings.TrimPrefix(uri, orderURIPrefix)
	if id == "" || id == uri {
		return nil, fmt.Errorf("invalid order URI %q", uri)
	}

	order, err := h.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	return jsonContents(uri, order)
}

func jsonContents(uri string, v any) ([]mcplib.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", uri, err)
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
