// Package ticket renders kitchen tickets for 58mm thermal printers.
package ticket

import (
	"fmt"
	"strings"

	"github.com/andaluza-pos/api/internal/database"
	"github.com/andaluza-pos/api/internal/enum"
	"github.com/google/uuid"
)

// Width is the character width of a 58mm thermal printer.
const Width = 32

const header = "TAQUERIA LA ANDALUZA"

// ShortRef is the printed order reference: first 6 characters of the id,
// uppercased. Matches the reference shown on the tab screen.
func ShortRef(id uuid.UUID) string {
	return strings.ToUpper(id.String()[:6])
}

// Format renders one order as a plain-text kitchen ticket. tableName is
// empty for takeout orders. Modifier snapshots print indented under their
// item, with the surcharge when one applies.
func Format(order database.Order, tableName string, items []database.KitchenItemRow, modifiers []database.OrderItemModifier) string {
	modsByItem := make(map[uuid.UUID][]database.OrderItemModifier)
	for _, m := range modifiers {
		modsByItem[m.OrderItemID] = append(modsByItem[m.OrderItemID], m)
	}

	var b strings.Builder
	rule := strings.Repeat("-", Width)

	b.WriteString(center(header) + "\n")
	b.WriteString(center("COMANDA COCINA") + "\n")
	b.WriteString(rule + "\n")

	b.WriteString(pad("#"+ShortRef(order.ID), order.CreatedAt.Format("02/01 15:04")) + "\n")
	if order.OrderType == enum.OrderTypeTakeout {
		b.WriteString("Tipo: PARA LLEVAR\n")
	} else {
		b.WriteString("Tipo: COMER AQUI\n")
		if tableName != "" {
			b.WriteString(tableName + "\n")
		}
	}
	b.WriteString(rule + "\n")

	for _, item := range items {
		if item.Status == enum.OrderItemStatusCancelled {
			continue
		}
		b.WriteString(line(fmt.Sprintf("%dx %s", item.Quantity, item.ProductName)) + "\n")
		for _, mod := range modsByItem[item.ID] {
			price := database.NumericToDecimal(mod.PriceOverride)
			if price.IsPositive() {
				b.WriteString(line(fmt.Sprintf("  + %s (+$%s)", mod.ModifierName, price.StringFixed(2))) + "\n")
			} else {
				b.WriteString(line("  + "+mod.ModifierName) + "\n")
			}
		}
		if item.Notes.Valid && item.Notes.String != "" {
			b.WriteString(line("  * "+item.Notes.String) + "\n")
		}
	}

	if order.Notes.Valid && order.Notes.String != "" {
		b.WriteString(rule + "\n")
		b.WriteString(line("NOTA: "+order.Notes.String) + "\n")
	}

	b.WriteString(rule + "\n")
	return b.String()
}

// center pads s to the ticket width, splitting the slack evenly.
func center(s string) string {
	if len(s) >= Width {
		return s[:Width]
	}
	left := (Width - len(s)) / 2
	return strings.Repeat(" ", left) + s
}

// pad places left and right text at opposite edges of one line.
func pad(left, right string) string {
	gap := Width - len(left) - len(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

// line truncates to the ticket width.
func line(s string) string {
	if len(s) > Width {
		return s[:Width]
	}
	return s
}
