package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/camelcase"
	"github.com/shopspring/decimal"

	"github.com/abdidvp/ordersvc/internal/domain"
)

// ── warm palette ──
var (
	accent  = lipgloss.Color("#D97706") // amber
	fg      = lipgloss.Color("#E8E6E3") // warm light gray
	dim     = lipgloss.Color("#6B7280") // muted gray
	faint   = lipgloss.Color("#3F3F46") // very dim
	success = lipgloss.Color("#22C55E") // green
	danger  = lipgloss.Color("#EF4444") // red
	warning = lipgloss.Color("#F59E0B") // amber-yellow
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			Align(lipgloss.Center)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(1, 4).
			Align(lipgloss.Center).
			Width(68)

	dimStyle      = lipgloss.NewStyle().Foreground(dim)
	faintStyle    = lipgloss.NewStyle().Foreground(faint)
	passStyle     = lipgloss.NewStyle().Foreground(success)
	warnStyle     = lipgloss.NewStyle().Foreground(warning)
	errorTagStyle = lipgloss.NewStyle().Foreground(danger).Bold(true)
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(fg)
	totalStyle    = lipgloss.NewStyle().Bold(true).Foreground(accent)
	separatorLine = faintStyle.Render(strings.Repeat("─", 64))
)

// lowStock is the quantity at or below which a product is flagged.
var lowStock = decimal.NewFromInt(5)

// RenderOrder formats an order as a receipt.
func RenderOrder(order *domain.Order) string {
	var b strings.Builder

	title := headerStyle.Render("ordersvc")
	subtitle := dimStyle.Render("Order " + order.ID)
	customer := order.CustomerID
	if order.Customer != nil && order.Customer.Name != "" {
		customer = order.Customer.Name
	}
	total := totalStyle.Render(order.Total().StringFixed(2))

	b.WriteString(boxStyle.Render(title + "\n" + subtitle + "\n\n" + titleStyle.Render(customer) + "  " + total))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "  %s %s %s %s\n",
		dimStyle.Render(padRight("product", 30)),
		dimStyle.Render(padLeft("qty", 10)),
		dimStyle.Render(padLeft("price", 10)),
		dimStyle.Render(padLeft("subtotal", 12)),
	)
	b.WriteString("  " + separatorLine + "\n")

	for _, it := range order.Items {
		name := it.ProductName
		if name == "" {
			name = it.ProductID
		}
		fmt.Fprintf(&b, "  %s %s %s %s\n",
			titleStyle.Render(padRight(truncate(name, 30), 30)),
			padLeft(it.Quantity.StringFixed(domain.QuantityScale), 10),
			padLeft(it.Price.StringFixed(2), 10),
			padLeft(it.Subtotal().StringFixed(2), 12),
		)
	}

	b.WriteString("  " + separatorLine + "\n")
	fmt.Fprintf(&b, "  %s %s\n", padRight("", 51), totalStyle.Render(padLeft(order.Total().StringFixed(2), 12)))
	if !order.CreatedAt.IsZero() {
		b.WriteString("  " + dimStyle.Render("placed "+order.CreatedAt.Format("2006-01-02 15:04:05")) + "\n")
	}
	return b.String()
}

// RenderOrders lists a customer's orders, newest first.
func RenderOrders(orders []domain.Order) string {
	if len(orders) == 0 {
		return "  " + dimStyle.Render("No orders found.") + "\n"
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString("  " + titleStyle.Render("Orders") + "\n")
	b.WriteString("  " + faintStyle.Render(strings.Repeat("─", 50)) + "\n\n")

	for _, o := range orders {
		items := fmt.Sprintf("%d items", len(o.Items))
		if len(o.Items) == 1 {
			items = "1 item"
		}
		fmt.Fprintf(&b, "  %s  %s  %s  %s\n",
			dimStyle.Render(o.CreatedAt.Format("2006-01-02")),
			faintStyle.Render(o.ID),
			padLeft(items, 9),
			totalStyle.Render(o.Total().StringFixed(2)),
		)
	}
	return b.String()
}

// RenderProducts formats the catalog as a table with stock levels.
func RenderProducts(products []domain.Product) string {
	if len(products) == 0 {
		return "  " + dimStyle.Render("No products found.") + "\n"
	}

	var b strings.Builder
	b.WriteString("\n")
	fmt.Fprintf(&b, "  %s %s %s %s\n",
		dimStyle.Render(padRight("id", 36)),
		dimStyle.Render(padRight("name", 20)),
		dimStyle.Render(padLeft("price", 10)),
		dimStyle.Render(padLeft("stock", 10)),
	)
	b.WriteString("  " + separatorLine + "\n")

	for _, p := range products {
		fmt.Fprintf(&b, "  %s %s %s %s\n",
			faintStyle.Render(padRight(p.ID, 36)),
			titleStyle.Render(padRight(truncate(p.Name, 20), 20)),
			padLeft(p.Price.StringFixed(2), 10),
			stockStyle(p.Quantity).Render(padLeft(p.Quantity.StringFixed(domain.QuantityScale), 10)),
		)
	}
	return b.String()
}

// RenderProduct prints a single product after add or restock.
func RenderProduct(p *domain.Product) string {
	return fmt.Sprintf("  %s %s  %s %s  %s %s\n",
		passStyle.Render("●"), titleStyle.Render(p.Name),
		dimStyle.Render("price"), p.Price.StringFixed(2),
		dimStyle.Render("stock"), stockStyle(p.Quantity).Render(p.Quantity.StringFixed(domain.QuantityScale)),
	) + "  " + faintStyle.Render(p.ID) + "\n"
}

// RenderCustomer prints a registered customer.
func RenderCustomer(c *domain.Customer) string {
	line := "  " + passStyle.Render("●") + " " + titleStyle.Render(c.Name)
	if c.Email != "" {
		line += "  " + dimStyle.Render(c.Email)
	}
	return line + "\n  " + faintStyle.Render(c.ID) + "\n"
}

// RenderError formats a workflow error with its kind spelled out, e.g.
// "insufficient stock: product P2 requested 2.00, available 1.00".
func RenderError(err error) string {
	kind := domain.ErrorKind(err)
	if kind == "" {
		return ""
	}
	label := strings.ToLower(strings.Join(camelcase.Split(kind), " "))
	msg := err.Error()
	// Drop the sentinel prefix already conveyed by the label.
	if unwrapped := errors.Unwrap(err); unwrapped != nil {
		prefix := unwrapped.Error() + ": "
		msg = strings.TrimPrefix(msg, prefix)
	}
	return "  " + errorTagStyle.Render(label) + "  " + dimStyle.Render(msg) + "\n"
}

func stockStyle(q decimal.Decimal) lipgloss.Style {
	switch {
	case !q.IsPositive():
		return errorTagStyle
	case q.LessThanOrEqual(lowStock):
		return warnStyle
	default:
		return passStyle
	}
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}

func padRight(s string, width int) string {
	if n := lipgloss.Width(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

func padLeft(s string, width int) string {
	if n := lipgloss.Width(s); n < width {
		return strings.Repeat(" ", width-n) + s
	}
	return s
}
