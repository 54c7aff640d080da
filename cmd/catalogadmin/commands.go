package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/ariefcatur/go-storefront/internal/admin"
	"github.com/ariefcatur/go-storefront/internal/api"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

type connectFunc func(cmd *cobra.Command) (*admin.Editor, error)

func newListCmd(connect connectFunc) *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of products, disabled ones included",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ed, err := connect(cmd)
			if err != nil {
				return err
			}
			if err := ed.List(cmd.Context(), page); err != nil {
				return err
			}
			printProducts(cmd.OutOrStdout(), ed.Products(), ed.Pagination())
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	return cmd
}

type productFlags struct {
	title, category, unit string
	description, content  string
	image                 string
	images                []string
	price, originPrice    string
	disabled              bool
}

func (f *productFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.title, "title", "", "product title")
	fs.StringVar(&f.category, "category", "", "category")
	fs.StringVar(&f.unit, "unit", "", "unit, e.g. box")
	fs.StringVar(&f.description, "description", "", "short description")
	fs.StringVar(&f.content, "content", "", "long content")
	fs.StringVar(&f.image, "image", "", "main image URL")
	fs.StringSliceVar(&f.images, "images", nil, "extra image URLs")
	fs.StringVar(&f.price, "price", "0", "selling price")
	fs.StringVar(&f.originPrice, "origin-price", "", "list price, defaults to --price")
	fs.BoolVar(&f.disabled, "disabled", false, "hide the product from shoppers")
	_ = cmd.MarkFlagRequired("title")
}

func (f *productFlags) product() (api.Product, error) {
	price, err := decimal.NewFromString(f.price)
	if err != nil {
		return api.Product{}, fmt.Errorf("invalid --price: %w", err)
	}
	origin := price
	if f.originPrice != "" {
		if origin, err = decimal.NewFromString(f.originPrice); err != nil {
			return api.Product{}, fmt.Errorf("invalid --origin-price: %w", err)
		}
	}
	enabled := 1
	if f.disabled {
		enabled = 0
	}
	return api.Product{
		Title:       f.title,
		Category:    f.category,
		Unit:        f.unit,
		Description: f.description,
		Content:     f.content,
		ImageURL:    f.image,
		ImagesURL:   f.images,
		Price:       price,
		OriginPrice: origin,
		IsEnabled:   enabled,
	}, nil
}

func newCreateCmd(connect connectFunc) *cobra.Command {
	pf := &productFlags{}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := pf.product()
			if err != nil {
				return err
			}
			ed, err := connect(cmd)
			if err != nil {
				return err
			}
			return ed.Create(cmd.Context(), p)
		},
	}
	pf.bind(cmd)
	return cmd
}

func newUpdateCmd(connect connectFunc) *cobra.Command {
	pf := &productFlags{}
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := pf.product()
			if err != nil {
				return err
			}
			ed, err := connect(cmd)
			if err != nil {
				return err
			}
			return ed.Update(cmd.Context(), args[0], p)
		},
	}
	pf.bind(cmd)
	return cmd
}

func newDeleteCmd(connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ed, err := connect(cmd)
			if err != nil {
				return err
			}
			return ed.Delete(cmd.Context(), args[0])
		},
	}
}

func printProducts(w io.Writer, ps []api.Product, pg api.Pagination) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tPRICE\tORIGIN\tENABLED")
	for _, p := range ps {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\n",
			p.ID, p.Title, p.Category, p.Price.String(), p.OriginPrice.String(), p.IsEnabled == 1)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "page %d of %d\n", pg.CurrentPage, pg.TotalPages)
}
