package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"etalase/internal/models"
	"etalase/internal/services"
)

func table(w io.Writer, header string, rows func(tw *tabwriter.Writer)) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, header)
	rows(tw)
	return tw.Flush()
}

func printIdentity(w io.Writer, id *models.Identity) {
	if id == nil {
		fmt.Fprintln(w, "not signed in")
		return
	}
	name := strings.TrimSpace(id.FirstName + " " + id.LastName)
	fmt.Fprintf(w, "%s <%s> role=%s uid=%s\n", name, id.Email, id.Role, id.ID)
	if id.Phone != "" {
		fmt.Fprintf(w, "phone: %s\n", id.Phone)
	}
	if id.Address != "" {
		fmt.Fprintf(w, "address: %s\n", id.Address)
	}
}

func printProducts(w io.Writer, products []models.Product) error {
	return table(w, "ID\tNAME\tBRAND\tCATEGORY\tPRICE", func(tw *tabwriter.Writer) {
		for _, p := range products {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f\n", p.ID, p.Name, p.Brand, p.Category, p.Price)
		}
	})
}

func printCart(w io.Writer, cart *services.Cart) error {
	if cart.IsEmpty() {
		fmt.Fprintln(w, "cart is empty")
		return nil
	}
	err := table(w, "LINE\tPRODUCT\tQTY\tPRICE", func(tw *tabwriter.Writer) {
		for _, l := range cart.Lines() {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\n", l.ID, l.Product.Name, l.Quantity, l.Product.Price)
		}
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%d items, total %.2f\n", cart.ItemCount(), cart.TotalPrice())
	return nil
}

func printOrders(w io.Writer, orders []models.Order) error {
	if len(orders) == 0 {
		fmt.Fprintln(w, "no orders")
		return nil
	}
	return table(w, "ORDER\tCUSTOMER\tSHIP TO\tITEMS\tTOTAL\tSTATUS\tCREATED", func(tw *tabwriter.Writer) {
		for _, o := range orders {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.2f\t%s\t%s\n",
				o.ID, o.UserID, o.ShippingName(), len(o.Items), o.Total, o.Status, o.CreatedAt.Format("2006-01-02 15:04"))
		}
	})
}
