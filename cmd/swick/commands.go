package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"swick/internal/cart"
	"swick/internal/dispatch"
	"swick/internal/journal"
	"swick/internal/messaging"
	"swick/internal/metrics"
	"swick/internal/models"
	"swick/internal/money"
	"swick/internal/realtime"
	"swick/internal/services/notification"
	"swick/internal/services/quote"
	"swick/internal/services/tracking"
	"swick/internal/workflow"
)

func loginCmd(a *app) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a session token and check it with the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := a.openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			sess, err := a.newSession(db)
			if err != nil {
				return err
			}
			if err := sess.SignIn(ctx, token); err != nil {
				return err
			}
			res, err := sess.Restore(ctx, a.apiClient(sess))
			if err != nil {
				return err
			}
			fmt.Printf("Signed in as user %d\n", res.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "Session token issued by the identity provider")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			sess, err := a.newSession(db)
			if err != nil {
				return err
			}
			return sess.SignOut(cmd.Context())
		},
	}
}

func whoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user and their realtime channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, sess, _, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			fmt.Printf("user:    %d\n", sess.UserID())
			fmt.Printf("role:    %s\n", sess.Capabilities().Role())
			if id, ok := sess.RestaurantID(); ok {
				fmt.Printf("restaurant: %d\n", id)
			}
			fmt.Printf("channel: %s\n", sess.HomeChannel())
			return nil
		},
	}
}

// readCart loads cart lines from a JSON file, in the same shape the quote service accepts
func readCart(path string) ([]quote.LineRequest, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cart file: %w", err)
	}
	var lines []quote.LineRequest
	if err := json.Unmarshal(content, &lines); err != nil {
		return nil, fmt.Errorf("failed to parse cart file: %w", err)
	}
	return lines, nil
}

// watchWorkflow prints each transition from the UI loop and returns a function that
// waits for everything published so far to be printed
func watchWorkflow(ctx context.Context, wf *workflow.Workflow) (flush func()) {
	loop := dispatch.NewLoop(32)
	go loop.Run(ctx)

	wf.Store().SubscribeOn(loop, func(s workflow.Snapshot) {
		line := s.Phase.String()
		if s.Message != "" {
			line += ": " + s.Message
		}
		fmt.Println(line)
	})

	return func() {
		done := make(chan struct{})
		if loop.Post(func() { close(done) }) {
			<-done
		}
		loop.Stop()
	}
}

func orderCmd(a *app) *cobra.Command {
	var (
		restaurantID int
		table        int
		cartPath     string
		tipKind      string
		tipAmount    string
		card         string
	)
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Charge a cart and place it as an order",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.signalContext()
			defer cancel()

			lines, err := readCart(cartPath)
			if err != nil {
				return err
			}
			selected, err := a.tipPolicy().Parse(tipKind, tipAmount)
			if err != nil {
				return err
			}

			db, sess, client, err := a.signedIn(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			sess.EnterRestaurant(restaurantID)
			for _, l := range lines {
				if err := cart.ValidatePrices(l.Meal, l.Customizations); err != nil {
					return err
				}
				if err := sess.Cart.Add(models.NewCartItem(l.Meal, l.Quantity, l.Customizations)); err != nil {
					return err
				}
			}

			wf := a.newWorkflow(db, sess, client, prometheus.NewRegistry())
			flush := watchWorkflow(ctx, wf)
			defer flush()

			wf.SetTip(selected)
			q := wf.Quote()
			fmt.Printf("subtotal %s  tax %s  tip %s  total %s\n",
				money.Format(q.Subtotal), money.Format(q.Tax), money.Format(q.TipOrZero()), money.Format(q.Total))

			if card != "" {
				if err := wf.SelectPaymentMethod(ctx, card); err != nil {
					return err
				}
			}
			return reportAttempt(wf.PlaceOrder(ctx, restaurantID, table))
		},
	}
	cmd.Flags().IntVar(&restaurantID, "restaurant", 0, "Restaurant id")
	cmd.Flags().IntVar(&table, "table", 0, "Table number")
	cmd.Flags().StringVar(&cartPath, "cart", "cart.json", "Cart file (JSON array of lines)")
	cmd.Flags().StringVar(&tipKind, "tip", "later", "Tip: later, low, mid, high or custom")
	cmd.Flags().StringVar(&tipAmount, "tip-amount", "", "Amount for a custom tip")
	cmd.Flags().StringVar(&card, "card", "", "Payment method id")
	_ = cmd.MarkFlagRequired("restaurant")
	_ = cmd.MarkFlagRequired("table")
	return cmd
}

func tipCmd(a *app) *cobra.Command {
	var (
		restaurantID int
		orderID      int
		tipKind      string
		tipAmount    string
		subtotal     string
		card         string
	)
	cmd := &cobra.Command{
		Use:   "tip",
		Short: "Charge a tip on a placed order",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.signalContext()
			defer cancel()

			selected, err := a.tipPolicy().Parse(tipKind, tipAmount)
			if err != nil {
				return err
			}
			base, err := decimal.NewFromString(subtotal)
			if err != nil {
				return fmt.Errorf("invalid subtotal: %w", err)
			}

			db, sess, client, err := a.signedIn(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			wf := a.newWorkflow(db, sess, client, prometheus.NewRegistry())
			flush := watchWorkflow(ctx, wf)
			defer flush()

			if card != "" {
				if err := wf.SelectPaymentMethod(ctx, card); err != nil {
					return err
				}
			}
			return reportAttempt(wf.SendTip(ctx, restaurantID, orderID, selected, base))
		},
	}
	cmd.Flags().IntVar(&restaurantID, "restaurant", 0, "Restaurant id")
	cmd.Flags().IntVar(&orderID, "order", 0, "Order id")
	cmd.Flags().StringVar(&tipKind, "tip", "custom", "Tip: low, mid, high or custom")
	cmd.Flags().StringVar(&tipAmount, "amount", "", "Amount for a custom tip")
	cmd.Flags().StringVar(&subtotal, "subtotal", "0", "Order subtotal preset percentages apply to")
	cmd.Flags().StringVar(&card, "card", "", "Payment method id")
	_ = cmd.MarkFlagRequired("restaurant")
	_ = cmd.MarkFlagRequired("order")
	return cmd
}

// reportAttempt turns a workflow result into the command's exit status
func reportAttempt(err error) error {
	var we *workflow.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &we) && we.Charged():
		return fmt.Errorf("%s (run `swick unreconciled` to review)", we.Message)
	case errors.As(err, &we):
		return errors.New(we.Message)
	}
	return err
}

func detailsCmd(a *app) *cobra.Command {
	var (
		orderID int
		watch   bool
	)
	cmd := &cobra.Command{
		Use:   "details",
		Short: "Show an order and optionally follow its status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.signalContext()
			defer cancel()

			db, sess, client, err := a.signedIn(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			tracker := tracking.NewTracker(client, orderID, a.log)
			if err := tracker.Refresh(ctx); err != nil {
				return err
			}
			printDetails(tracker.View())
			if !watch {
				return nil
			}

			loop := dispatch.NewLoop(32)
			conn, rt, err := a.realtimeClient(loop)
			if err != nil {
				return err
			}
			defer conn.Close()

			tracker.Store().SubscribeOn(loop, printDetails)
			tracker.Watch(ctx, rt, true)
			if err := sess.Listen(ctx, rt); err != nil {
				return err
			}
			defer rt.Unsubscribe()

			if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&orderID, "order", 0, "Order id")
	cmd.Flags().BoolVar(&watch, "watch", false, "Follow status pushes until interrupted")
	_ = cmd.MarkFlagRequired("order")
	return cmd
}

func printDetails(v tracking.View) {
	if v.Message != "" {
		fmt.Println(v.Message)
	}
	if v.Details == nil || v.Loading {
		return
	}
	d := v.Details
	status := string(d.Status)
	if v.Optimistic {
		status += " (updating)"
	}
	fmt.Printf("Order %d  table %d  server %s  status %s  total %s\n",
		d.ID, d.Table, d.ServerName, status, money.Format(d.Total))
	for _, item := range d.Items {
		fmt.Printf("  %dx %s  %s\n", item.Quantity, item.MealName, money.Format(item.Total))
		if text := item.CustomizationText(); text != "" {
			fmt.Printf("    %s\n", text)
		}
	}
}

func requestsCmd(a *app) *cobra.Command {
	var restaurantID int
	cmd := &cobra.Command{
		Use:   "requests",
		Short: "List the service requests a restaurant accepts",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, client, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			options, err := client.GetRequestOptions(cmd.Context(), restaurantID)
			if err != nil {
				return err
			}
			for _, o := range options {
				fmt.Printf("%d\t%s\n", o.ID, o.Name)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&restaurantID, "restaurant", 0, "Restaurant id")
	_ = cmd.MarkFlagRequired("restaurant")
	return cmd
}

func requestCmd(a *app) *cobra.Command {
	var optionID, table int
	cmd := &cobra.Command{
		Use:   "request",
		Short: "Send a service request to staff",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, client, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			alreadySent, err := client.MakeRequest(cmd.Context(), optionID, table)
			if err != nil {
				return err
			}
			if alreadySent {
				fmt.Println("Request already sent")
				return nil
			}
			fmt.Println("Request sent")
			return nil
		},
	}
	cmd.Flags().IntVar(&optionID, "option", 0, "Request option id")
	cmd.Flags().IntVar(&table, "table", 0, "Table number")
	_ = cmd.MarkFlagRequired("option")
	_ = cmd.MarkFlagRequired("table")
	return cmd
}

func listenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Print realtime notifications for the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.signalContext()
			defer cancel()

			db, sess, _, err := a.signedIn(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			loop := dispatch.NewLoop(64)
			go loop.Run(ctx)

			conn, rt, err := a.realtimeClient(loop)
			if err != nil {
				return err
			}
			defer conn.Close()

			return notification.NewSubscriber(sess, os.Stdout, a.log).Start(ctx, rt)
		},
	}
}

func serveCmd(a *app) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve cart quotes, order details and metrics over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.signalContext()
			defer cancel()
			if port == 0 {
				port = a.cfg.HTTP.Port
			}

			db, err := a.openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()
			sess, err := a.newSession(db)
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector())
			svc := quote.NewService(a.tipPolicy(), a.cfg.Payment.MinCharge, db)
			handler := quote.NewHandler(svc, metrics.NewServerMetrics(reg, "quote"), metrics.Handler(reg), a.log)

			mux := handler.SetupRoutes()
			tracking.NewHandler(a.apiClient(sess), a.log).Register(mux)

			server := &http.Server{
				Addr:              fmt.Sprintf(":%d", port),
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.log.Info("service_started", fmt.Sprintf("Quote service started on port %d", port), "", map[string]interface{}{
					"port": port,
				})
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			select {
			case <-ctx.Done():
			case err := <-errCh:
				return fmt.Errorf("http server failed: %w", err)
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			return server.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "HTTP port (defaults to http.port from config)")
	return cmd
}

func unreconciledCmd(a *app) *cobra.Command {
	var resolve, note string
	cmd := &cobra.Command{
		Use:   "unreconciled",
		Short: "List charges the backend never recorded, or resolve one",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := a.openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			j := journal.NewPostgres(db, a.log)
			if resolve != "" {
				return j.Resolve(ctx, resolve, note)
			}

			attempts, err := j.ListUnreconciled(ctx)
			if err != nil {
				return err
			}
			if len(attempts) == 0 {
				fmt.Println("No unreconciled charges")
				return nil
			}
			for _, at := range attempts {
				ref, reason := "", ""
				if at.ChargeRef != nil {
					ref = *at.ChargeRef
				}
				if at.Reason != nil {
					reason = *at.Reason
				}
				fmt.Printf("%s\t%s\t%s\t%s\t%s\t%s\n",
					at.ID, at.CreatedAt.Local().Format("2006-01-02 15:04"), at.Kind, money.Format(at.Amount), ref, reason)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&resolve, "resolve", "", "Attempt id to mark reconciled")
	cmd.Flags().StringVar(&note, "note", "", "Resolution note")
	return cmd
}

func emitCmd(a *app) *cobra.Command {
	var channel, event, data string
	cmd := &cobra.Command{
		Use:   "emit",
		Short: "Publish a realtime event (for staff tools and testing)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !json.Valid([]byte(data)) {
				return errors.New("--data must be valid JSON")
			}
			conn, err := messaging.New(a.cfg, a.log)
			if err != nil {
				return fmt.Errorf("failed to initialize messaging: %w", err)
			}
			defer conn.Close()

			pub := realtime.NewPublisher(messaging.NewPublisher(conn, a.log))
			return pub.Publish(cmd.Context(), channel, event, json.RawMessage(data))
		},
	}
	cmd.Flags().StringVar(&channel, "channel", "", "Channel, e.g. private-customer-4")
	cmd.Flags().StringVar(&event, "event", "", "Event name, e.g. order-status")
	cmd.Flags().StringVar(&data, "data", "{}", "JSON payload")
	_ = cmd.MarkFlagRequired("channel")
	_ = cmd.MarkFlagRequired("event")
	return cmd
}
