package pdf

import (
	"fmt"
	"strconv"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	marotoconfig "github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	billingdomain "github.com/opticore/opticore/internal/billing/domain"
)

func documentTitle(t billingdomain.DocumentType) string {
	switch t {
	case billingdomain.DocumentTypeFacturaInterna:
		return "Factura Interna"
	case billingdomain.DocumentTypeBoletaInterna:
		return "Boleta Interna"
	default:
		return "Ticket Interno"
	}
}

func buildDocument(doc *billingdomain.BillingDocument, items []billingdomain.BillingDocumentItem) (core.Document, error) {
	cfg := marotoconfig.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Página {current} de {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(8, documentTitle(doc.DocumentType), props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, doc.Folio, props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)

	m.AddRow(18,
		col.New(6).Add(
			text.New("Cliente: "+doc.CustomerName, props.Text{Top: 0, Size: 10}),
			text.New("RUT: "+doc.CustomerTaxID, props.Text{Top: 5, Size: 10}),
		),
		col.New(6).Add(
			text.New("Orden: "+doc.OrderNumber, props.Text{Top: 0, Size: 10, Align: align.Right}),
			text.New("Emitido: "+doc.IssuedAt.Format("02-01-2006 15:04"), props.Text{Top: 5, Size: 10, Align: align.Right}),
		),
	)

	m.AddRow(8,
		text.NewCol(5, "Descripción", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Categoría", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(1, "Cant.", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Precio", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Total", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	for _, item := range items {
		m.AddRow(8,
			text.NewCol(5, item.Description, props.Text{Size: 9}),
			text.NewCol(2, string(item.Category), props.Text{Size: 9}),
			text.NewCol(1, strconv.Itoa(item.Quantity), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, formatAmount(item.UnitPrice, doc.Currency), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, formatAmount(item.Total, doc.Currency), props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(8,
		col.New(8),
		text.NewCol(2, "Neto", props.Text{Size: 9, Align: align.Right}),
		text.NewCol(2, formatAmount(doc.Subtotal, doc.Currency), props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(8,
		col.New(8),
		text.NewCol(2, "IVA", props.Text{Size: 9, Align: align.Right}),
		text.NewCol(2, formatAmount(doc.TaxAmount, doc.Currency), props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Total", props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right}),
		text.NewCol(2, formatAmount(doc.Total, doc.Currency), props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right}),
	)

	m.AddRow(12,
		text.NewCol(12, "Documento interno sin validez tributaria.", props.Text{Size: 8, Top: 4}),
	)

	return m.Generate()
}

// formatAmount renders minor units with a thousands separator. CLP carries
// no decimal places; everything else gets two.
func formatAmount(amount int64, currency string) string {
	if currency == "CLP" {
		return "$" + groupThousands(amount)
	}
	whole := amount / 100
	cents := amount % 100
	if cents < 0 {
		cents = -cents
	}
	return fmt.Sprintf("$%s,%02d", groupThousands(whole), cents)
}

func groupThousands(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	s := strconv.FormatInt(v, 10)
	if len(s) <= 3 {
		return sign + s
	}
	var out []byte
	lead := len(s) % 3
	if lead > 0 {
		out = append(out, s[:lead]...)
	}
	for i := lead; i < len(s); i += 3 {
		if len(out) > 0 {
			out = append(out, '.')
		}
		out = append(out, s[i:i+3]...)
	}
	return sign + string(out)
}
