package supply

import (
	"fmt"
	"time"

	"supplydesk-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
)

// GET /api/supplies/export
// Writes the current register as an .xlsx report, one row per supply
// with its derived stock status.
func ExportSuppliesHandler(reg *Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := reg.List(c.UserContext())
		if err != nil {
			return err
		}

		f := excelize.NewFile()
		defer f.Close()

		const sheet = "Supplies"
		f.SetSheetName("Sheet1", sheet)

		headers := []string{"ID", "Name", "Type", "Model", "Quantity", "Min Quantity", "Unit", "Location", "Status", "Updated At"}
		for i, h := range headers {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			f.SetCellValue(sheet, cell, h)
		}

		for row, item := range items {
			values := []any{
				item.ID, item.Name, item.Type, item.Model,
				item.Quantity, item.MinQuantity, item.Unit, item.Location,
				string(models.StockStatusOf(item.Quantity, item.MinQuantity)),
				item.UpdatedAt.Format("2006-01-02 15:04:05"),
			}
			for col, v := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
				f.SetCellValue(sheet, cell, v)
			}
		}

		buf, err := f.WriteToBuffer()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not build report")
		}

		filename := fmt.Sprintf("supplies-%s.xlsx", time.Now().UTC().Format("2006-01-02"))
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename=%q`, filename))
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		return c.Send(buf.Bytes())
	}
}
