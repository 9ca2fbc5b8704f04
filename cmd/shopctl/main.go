package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ecocart/storefront/internal/client"
	"github.com/ecocart/storefront/internal/domain"
	"github.com/ecocart/storefront/internal/telemetry"
)

const usage = `usage: shopctl [flags] <command> [args]

commands:
  products [-category c] [-search s]   list the catalog
  cart                                 show the cart
  add <productId> [quantity]           add a product to the cart
  checkout <cod|upi|card>              order the cart and start payment
  confirm -session id | -order id -method m
                                       confirm a payment`

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	_ = godotenv.Load()

	apiURL := flag.String("api", getenv("ECOCART_API_URL", "http://localhost:8080/api"), "storefront API base URL")
	email := flag.String("email", os.Getenv("ECOCART_EMAIL"), "account email")
	password := flag.String("password", os.Getenv("ECOCART_PASSWORD"), "account password")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend := client.NewFallbackBackend(
		client.NewHTTPBackend(*apiURL, telemetry.NewHTTPClient(0)),
		client.NewDemoBackend(),
		func(reason error) {
			logger.Warn("API unreachable, using demo mode; no real payments will be processed", "error", reason)
		},
	)

	cli := &cli{backend: backend, email: *email, password: *password}
	if err := cli.run(ctx, args[0], args[1:]); err != nil {
		logger.Error("command failed", "command", args[0], "error", err)
		os.Exit(1)
	}
}

type cli struct {
	backend  client.Backend
	email    string
	password string
}

func (c *cli) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "products":
		fs := flag.NewFlagSet("products", flag.ContinueOnError)
		category := fs.String("category", "", "category filter")
		search := fs.String("search", "", "search text")
		if err := fs.Parse(args); err != nil {
			return err
		}
		query := url.Values{}
		if *category != "" {
			query.Set("category", *category)
		}
		if *search != "" {
			query.Set("search", *search)
		}
		products, err := c.backend.Products(ctx, query)
		if err != nil {
			return err
		}
		return c.print(products)

	case "cart":
		if err := c.login(ctx); err != nil {
			return err
		}
		view, err := c.backend.Cart(ctx)
		if err != nil {
			return err
		}
		return c.print(view)

	case "add":
		if len(args) < 1 {
			return errors.New("add requires a product id")
		}
		quantity := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid quantity %q: %w", args[1], err)
			}
			quantity = n
		}
		if err := c.login(ctx); err != nil {
			return err
		}
		view, err := c.backend.AddToCart(ctx, args[0], quantity)
		if err != nil {
			return err
		}
		return c.print(view)

	case "checkout":
		if len(args) < 1 {
			return errors.New("checkout requires a payment method")
		}
		if err := c.login(ctx); err != nil {
			return err
		}
		return c.checkout(ctx, args[0])

	case "confirm":
		fs := flag.NewFlagSet("confirm", flag.ContinueOnError)
		sessionID := fs.String("session", "", "card checkout session id")
		orderID := fs.String("order", "", "order id")
		method := fs.String("method", "", "payment method")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if err := c.login(ctx); err != nil {
			return err
		}
		result, err := c.backend.ConfirmPayment(ctx, domain.ConfirmRequest{
			SessionID:     *sessionID,
			OrderID:       *orderID,
			PaymentMethod: *method,
		})
		if err != nil {
			return err
		}
		return c.print(result)

	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func (c *cli) login(ctx context.Context) error {
	if c.email == "" || c.password == "" {
		return errors.New("set -email and -password (or ECOCART_EMAIL and ECOCART_PASSWORD)")
	}
	_, err := c.backend.Login(ctx, c.email, c.password)
	return err
}

// checkout orders the current cart at catalog prices and begins payment.
func (c *cli) checkout(ctx context.Context, method string) error {
	view, err := c.backend.Cart(ctx)
	if err != nil {
		return err
	}
	if len(view.Items) == 0 {
		return errors.New("cart is empty")
	}

	req := domain.CreateOrderRequest{Total: &view.Total}
	for _, line := range view.Items {
		req.Items = append(req.Items, domain.CreateOrderItem{
			ProductID: line.Product.ID.Hex(),
			Quantity:  line.Quantity,
		})
	}

	order, err := c.backend.CreateOrder(ctx, req)
	if err != nil {
		return err
	}

	result, err := c.backend.BeginCheckout(ctx, domain.CheckoutRequest{OrderID: order.ID, PaymentMethod: method})
	if err != nil {
		return err
	}

	return c.print(struct {
		Order    *client.PlacedOrder    `json:"order"`
		Checkout *domain.CheckoutResult `json:"checkout"`
		Mode     client.Mode            `json:"mode"`
	}{order, result, c.backend.Mode()})
}

func (c *cli) print(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
