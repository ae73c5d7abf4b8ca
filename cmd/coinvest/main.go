// Package main is the operator CLI for the co-investment coordination
// layer. Every command builds the full application so workflows run with
// the same gateways the daemon uses.
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	app "github.com/brickvest/coinvest_layer/internal/app"
	"github.com/brickvest/coinvest_layer/internal/app/storage"
	"github.com/brickvest/coinvest_layer/internal/app/storage/postgres"
	"github.com/brickvest/coinvest_layer/internal/config"
	"github.com/brickvest/coinvest_layer/internal/errors"
	"github.com/brickvest/coinvest_layer/internal/wallet"
	"github.com/brickvest/coinvest_layer/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var appErr *errors.Error
		if stderrors.As(err, &appErr) && appErr.CommitKey != "" {
			fmt.Fprintf(os.Stderr, "retry with: coinvest pending retry %s\n", appErr.CommitKey)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "coinvest",
		Short:         "Co-investment workflows against the share contract and the platform backend",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(
		newLoginCmd(),
		newRegisterCmd(),
		newLogoutCmd(),
		newWalletCmd(),
		newQuoteCmd(),
		newInvestCmd(),
		newRentCmd(),
		newPendingCmd(),
	)
	return root
}

// withApp loads config, wires the application and hands it to fn with a
// started session.
func withApp(fn func(ctx context.Context, a *app.Application) error) error {
	log := logger.NewDefault("coinvest")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var store storage.StateStore
	if cfg.PostgresDSN != "" {
		pg, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("open state store: %w", err)
		}
		defer pg.Close()
		store = pg
	}

	application, err := app.New(cfg, store, log)
	if err != nil {
		return err
	}
	if err := application.Session.Restore(ctx); err != nil {
		return err
	}
	if err := application.Wallet.Restore(ctx); err != nil {
		return err
	}
	return fn(ctx, application)
}

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <username> <password>",
		Short: "Authenticate against the platform backend",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.Application) error {
				userID, err := a.Auth.Login(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				cmd.Printf("logged in as user %d\n", userID)
				return nil
			})
		},
	}
}

func newRegisterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register <username> <password>",
		Short: "Create a platform account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.Application) error {
				if err := a.Auth.Register(ctx, args[0], args[1]); err != nil {
					return err
				}
				cmd.Println("account created")
				return nil
			})
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session and wallet connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.Application) error {
				return a.Auth.Logout(ctx)
			})
		},
	}
}

func newWalletCmd() *cobra.Command {
	walletCmd := &cobra.Command{
		Use:   "wallet",
		Short: "Manage the wallet connection",
	}
	walletCmd.AddCommand(
		&cobra.Command{
			Use:   "connect <metamask|kaia>",
			Short: "Connect a wallet provider",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(func(ctx context.Context, a *app.Application) error {
					providerType, ok := wallet.ParseType(args[0])
					if !ok {
						return fmt.Errorf("unknown wallet provider %q", args[0])
					}
					account, err := a.Wallet.Connect(ctx, providerType)
					if err != nil {
						return err
					}
					cmd.Printf("connected %s (chain %d)\n", account.Address, account.ChainID)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the connected account",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(func(ctx context.Context, a *app.Application) error {
					account, ok := a.Wallet.Account()
					if !ok {
						cmd.Println("no wallet connected")
						return nil
					}
					cmd.Printf("%s (chain %d)\n", account.Address, account.ChainID)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "disconnect",
			Short: "Drop the cached wallet connection",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(func(ctx context.Context, a *app.Application) error {
					return a.Wallet.Disconnect(ctx)
				})
			},
		},
	)
	return walletCmd
}

func newQuoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quote <property-id> <percentage>",
		Short: "Preview the cost and return of a funding percentage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			propertyID, percentage, err := parseIDAndPercent(args)
			if err != nil {
				return err
			}
			return withApp(func(ctx context.Context, a *app.Application) error {
				q, err := a.Funding.Quote(ctx, propertyID, percentage)
				if err != nil {
					return err
				}
				cmd.Printf("shares:          %d\n", q.ShareCount)
				cmd.Printf("investment:      %s\n", q.InvestmentAmount)
				cmd.Printf("monthly return:  %s\n", q.MonthlyReturn)
				return nil
			})
		},
	}
}

func newInvestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invest <property-id> <percentage>",
		Short: "Reserve shares on chain and register the funding",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			propertyID, percentage, err := parseIDAndPercent(args)
			if err != nil {
				return err
			}
			return withApp(func(ctx context.Context, a *app.Application) error {
				f, err := a.Funding.Invest(ctx, propertyID, percentage)
				if err != nil {
					return err
				}
				cmd.Printf("funding %d created: %d%% of property %d for %s\n",
					f.ID, f.Percentage, f.PropertyID, f.InvestmentAmount)
				return nil
			})
		},
	}
}

func newRentCmd() *cobra.Command {
	rentCmd := &cobra.Command{
		Use:   "rent",
		Short: "Rent payment workflow",
	}

	applyCmd := &cobra.Command{
		Use:   "apply <property-id> <start> <end> <payment-day>",
		Short: "Apply for a lease (dates are YYYY-MM-DD)",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			propertyID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("property id must be numeric: %w", err)
			}
			start, err := time.Parse("2006-01-02", args[1])
			if err != nil {
				return fmt.Errorf("start date: %w", err)
			}
			end, err := time.Parse("2006-01-02", args[2])
			if err != nil {
				return fmt.Errorf("end date: %w", err)
			}
			paymentDay, err := strconv.Atoi(args[3])
			if err != nil {
				return fmt.Errorf("payment day must be numeric: %w", err)
			}
			return withApp(func(ctx context.Context, a *app.Application) error {
				lease, err := a.Rent.ApplyForRent(ctx, propertyID, start, end, paymentDay)
				if err != nil {
					return err
				}
				cmd.Printf("lease %d created with deposit %s\n", lease.ID, lease.Deposit)
				return nil
			})
		},
	}

	rentCmd.AddCommand(
		applyCmd,
		&cobra.Command{
			Use:   "pay <property-id>",
			Short: "Distribute this month's rent on chain and record the payment",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				propertyID, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("property id must be numeric: %w", err)
				}
				return withApp(func(ctx context.Context, a *app.Application) error {
					payment, err := a.Rent.PayRent(ctx, propertyID)
					if err != nil {
						return err
					}
					cmd.Printf("paid %s for property %d\n", payment.Amount, payment.PropertyID)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "eligibility <property-id>",
			Short: "Check whether rent can be paid today",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				propertyID, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("property id must be numeric: %w", err)
				}
				return withApp(func(ctx context.Context, a *app.Application) error {
					eligibility, err := a.Rent.Eligibility(ctx, propertyID)
					if err != nil {
						return err
					}
					if eligibility.CanPay {
						cmd.Println("rent can be paid today")
						return nil
					}
					cmd.Printf("rent cannot be paid: %s\n", eligibility.Reason)
					return nil
				})
			},
		},
	)
	return rentCmd
}

func newPendingCmd() *cobra.Command {
	pendingCmd := &cobra.Command{
		Use:   "pending",
		Short: "Inspect and retry interrupted two-phase commits",
	}
	pendingCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List commits whose backend half has not completed",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(func(ctx context.Context, a *app.Application) error {
					commits, err := a.Store.ListUnresolvedCommits(ctx)
					if err != nil {
						return err
					}
					if len(commits) == 0 {
						cmd.Println("no pending commits")
						return nil
					}
					for _, c := range commits {
						cmd.Printf("%s  %-12s  property=%d  tx=%s  created=%s\n",
							c.Key, c.Workflow, c.PropertyID, c.TxHash, c.CreatedAt.Format(time.RFC3339))
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "retry <commit-key>",
			Short: "Re-run the backend half of an interrupted commit",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(func(ctx context.Context, a *app.Application) error {
					marker, err := a.Store.GetPendingCommit(ctx, args[0])
					if err != nil {
						return err
					}
					switch marker.Workflow {
					case storage.WorkflowFunding:
						f, err := a.Funding.ResumePending(ctx, args[0])
						if err != nil {
							return err
						}
						cmd.Printf("funding %d registered\n", f.ID)
					case storage.WorkflowRentPayment:
						payment, err := a.Rent.ResumePending(ctx, args[0])
						if err != nil {
							return err
						}
						cmd.Printf("payment %d recorded\n", payment.ID)
					default:
						return fmt.Errorf("unknown workflow %q on commit %s", marker.Workflow, args[0])
					}
					return nil
				})
			},
		},
	)
	return pendingCmd
}

func parseIDAndPercent(args []string) (int64, int, error) {
	propertyID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("property id must be numeric: %w", err)
	}
	percentage, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, fmt.Errorf("percentage must be numeric: %w", err)
	}
	return propertyID, percentage, nil
}
