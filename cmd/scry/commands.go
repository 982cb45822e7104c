package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/phrazzld/scry-study/internal/deck"
	"github.com/phrazzld/scry-study/internal/domain"
	"github.com/phrazzld/scry-study/internal/platform/migrate"
	"github.com/phrazzld/scry-study/internal/platform/postgres"
	"github.com/phrazzld/scry-study/internal/platform/sqlite"
)

const timeLayout = "2006-01-02 15:04"

func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|reset|status]",
		Short:     "Apply or inspect database migrations",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{migrate.CommandUp, migrate.CommandDown, migrate.CommandReset, migrate.CommandStatus},
		RunE: func(cmd *cobra.Command, args []string) error {
			command := migrate.CommandUp
			if len(args) == 1 {
				command = args[0]
			}
			ctx := cmd.Context()

			db, err := openDatabase(ctx, c.cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = db.Close() }()

			if err := migrateDatabase(ctx, db, c.cfg.Database.Driver, command, c.logger); err != nil {
				return err
			}

			src := sqlite.Migrations
			if c.cfg.Database.Driver == "postgres" {
				src = postgres.Migrations
			}
			version, err := migrate.Version(ctx, db, src)
			if err != nil {
				return err
			}
			return c.out.print(map[string]any{"command": command, "version": version}, func(w io.Writer) {
				fmt.Fprintf(w, "%s\tschema version %d\n", command, version)
			})
		},
	}
}

func newSetCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "set", Short: "Manage card sets"}

	cmd.AddCommand(&cobra.Command{
		Use:   "create <name>",
		Short: "Create an empty card set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.application(cmd.Context())
			if err != nil {
				return err
			}
			set, err := app.study.CreateSet(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return c.out.print(set, func(w io.Writer) {
				fmt.Fprintf(w, "%s\t%s\n", set.ID, set.Name)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "import <deck.yaml>",
		Short: "Create a card set from a YAML deck file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := deck.Load(args[0])
			if err != nil {
				return err
			}
			app, err := c.application(cmd.Context())
			if err != nil {
				return err
			}
			set, err := app.study.ImportDeck(cmd.Context(), d)
			if err != nil {
				return err
			}
			return c.out.print(set, func(w io.Writer) {
				fmt.Fprintf(w, "%s\t%s\t%d cards\n", set.ID, set.Name, len(set.CardIDs))
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List card sets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := c.application(cmd.Context())
			if err != nil {
				return err
			}
			sets, err := app.study.ListSets(cmd.Context())
			if err != nil {
				return err
			}
			return c.out.print(sets, func(w io.Writer) {
				fmt.Fprintln(w, "ID\tNAME\tCARDS\tCREATED")
				for _, s := range sets {
					fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.ID, s.Name, len(s.CardIDs),
						s.CreatedAt.In(app.calendar.Location()).Format(timeLayout))
				}
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "stats <set-id>",
		Short: "Show total, due and new cards and the success rate of a set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setID, err := parseID("set", args[0])
			if err != nil {
				return err
			}
			app, err := c.application(cmd.Context())
			if err != nil {
				return err
			}
			summary, err := app.stats.SetStats(cmd.Context(), setID, time.Now())
			if err != nil {
				return err
			}
			return c.out.print(summary, func(w io.Writer) {
				fmt.Fprintln(w, "TOTAL\tDUE\tNEW\tSUCCESS")
				fmt.Fprintf(w, "%d\t%d\t%d\t%.0f%%\n", summary.Total, summary.Due, summary.New, summary.SuccessRate*100)
			})
		},
	})

	return cmd
}

func newCardCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "card", Short: "Manage cards"}

	var setFlag, topic string
	add := &cobra.Command{
		Use:   "add <front> <back>",
		Short: "Add a card, due immediately",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			setID := uuid.Nil
			if setFlag != "" {
				var err error
				if setID, err = parseID("set", setFlag); err != nil {
					return err
				}
			}
			app, err := c.application(cmd.Context())
			if err != nil {
				return err
			}
			card, err := app.study.AddCard(cmd.Context(), setID, topic, args[0], args[1])
			if err != nil {
				return err
			}
			return c.out.print(card, func(w io.Writer) {
				fmt.Fprintf(w, "%s\t%s\n", card.ID, card.Front)
			})
		},
	}
	add.Flags().StringVarP(&setFlag, "set", "s", "", "ID of the set the card belongs to")
	add.Flags().StringVarP(&topic, "topic", "t", "", "topic used for proficiency statistics")
	cmd.AddCommand(add)

	return cmd
}

// dueCounts is the output of the due command.
type dueCounts struct {
	Due              int `json:"due" yaml:"due"`
	New              int `json:"new" yaml:"new"`
	EstimatedMinutes int `json:"estimated_minutes" yaml:"estimated_minutes"`
}

func newDueCmd(c *cli) *cobra.Command {
	var setFlags []string
	cmd := &cobra.Command{
		Use:   "due",
		Short: "Count due and new cards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			app, setIDs, err := c.applicationWithSets(ctx, setFlags)
			if err != nil {
				return err
			}
			now := time.Now()

			var counts dueCounts
			if counts.Due, err = app.stats.DueCount(ctx, setIDs, now); err != nil {
				return err
			}
			if counts.New, err = app.stats.NewCount(ctx, setIDs); err != nil {
				return err
			}
			if counts.EstimatedMinutes, err = app.stats.EstimateDailyStudyMinutes(ctx, setIDs, now); err != nil {
				return err
			}
			return c.out.print(counts, func(w io.Writer) {
				fmt.Fprintln(w, "DUE\tNEW\tMINUTES")
				fmt.Fprintf(w, "%d\t%d\t%d\n", counts.Due, counts.New, counts.EstimatedMinutes)
			})
		},
	}
	addSetsFlag(cmd, &setFlags)
	return cmd
}

func newQueueCmd(c *cli) *cobra.Command {
	var setFlags []string
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "List today's review queue, earliest due first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			app, setIDs, err := c.applicationWithSets(ctx, setFlags)
			if err != nil {
				return err
			}
			queue, err := app.stats.DailyQueue(ctx, setIDs, time.Now())
			if err != nil {
				return err
			}
			return c.out.print(queue, func(w io.Writer) { app.printCards(w, queue) })
		},
	}
	addSetsFlag(cmd, &setFlags)
	return cmd
}

func newSessionCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "session <set-id>",
		Short: "Pick the cards for a study session from a set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setID, err := parseID("set", args[0])
			if err != nil {
				return err
			}
			app, err := c.application(cmd.Context())
			if err != nil {
				return err
			}
			cards, err := app.study.StartSession(cmd.Context(), setID)
			if err != nil {
				return err
			}
			return c.out.print(cards, func(w io.Writer) { app.printCards(w, cards) })
		},
	}
}

func newGradeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:       "grade <card-id> <again|good|easy>",
		Short:     "Grade a review and reschedule the card",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"again", "good", "easy"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cardID, err := parseID("card", args[0])
			if err != nil {
				return err
			}
			grade, err := domain.ParseGrade(args[1])
			if err != nil {
				return err
			}
			app, err := c.application(cmd.Context())
			if err != nil {
				return err
			}
			card, err := app.study.SubmitGrade(cmd.Context(), cardID, grade)
			if err != nil {
				return err
			}
			return c.out.print(card, func(w io.Writer) {
				fmt.Fprintf(w, "%s\tnext review %s\tinterval %dd\tease %.2f\n", card.ID,
					card.NextReviewAt.In(app.calendar.Location()).Format(timeLayout),
					card.IntervalDays, card.EaseFactor)
			})
		},
	}
}

func newPreviewCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "preview <card-id>",
		Short: "Show when a card would next be due for each grade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cardID, err := parseID("card", args[0])
			if err != nil {
				return err
			}
			app, err := c.application(cmd.Context())
			if err != nil {
				return err
			}
			previews, err := app.study.Preview(cmd.Context(), cardID)
			if err != nil {
				return err
			}
			return c.out.print(previews, func(w io.Writer) {
				for _, p := range previews {
					fmt.Fprintf(w, "%s\t%s\n", p.Grade,
						p.NextReviewAt.In(app.calendar.Location()).Format(timeLayout))
				}
			})
		},
	}
}

func newPostponeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "postpone <card-id> <days>",
		Short: "Push a card's next review back by whole days",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cardID, err := parseID("card", args[0])
			if err != nil {
				return err
			}
			days, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid number of days %q: %w", args[1], err)
			}
			app, err := c.application(cmd.Context())
			if err != nil {
				return err
			}
			card, err := app.study.Postpone(cmd.Context(), cardID, days)
			if err != nil {
				return err
			}
			return c.out.print(card, func(w io.Writer) {
				fmt.Fprintf(w, "%s\tnext review %s\n", card.ID,
					card.NextReviewAt.In(app.calendar.Location()).Format(timeLayout))
			})
		},
	}
}

func newCompleteCmd(c *cli) *cobra.Command {
	var setFlags []string
	cmd := &cobra.Command{
		Use:   "complete",
		Short: "Record a finished study session for the streak",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			setIDs, err := parseIDs(setFlags)
			if err != nil {
				return err
			}
			app, err := c.application(cmd.Context())
			if err != nil {
				return err
			}
			summary, err := app.study.CompleteSession(cmd.Context(), setIDs...)
			if err != nil {
				return err
			}
			return c.out.print(summary, func(w io.Writer) {
				fmt.Fprintf(w, "streak\t%d\nlongest\t%d\n", summary.Current, summary.Longest)
			})
		},
	}
	addSetsFlag(cmd, &setFlags)
	return cmd
}

func newStreakCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "streak",
		Short: "Show the current and longest study streak",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := c.application(cmd.Context())
			if err != nil {
				return err
			}
			summary, err := app.study.Streak(cmd.Context())
			if err != nil {
				return err
			}
			return c.out.print(summary, func(w io.Writer) {
				fmt.Fprintf(w, "streak\t%d\nlongest\t%d\n", summary.Current, summary.Longest)
				if summary.LastStudyDay != nil {
					fmt.Fprintf(w, "last studied\t%s\n", summary.LastStudyDay)
				}
			})
		},
	}
}

func newForecastCmd(c *cli) *cobra.Command {
	var setFlags []string
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Show how many reviews fall on each of the next seven days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			app, setIDs, err := c.applicationWithSets(ctx, setFlags)
			if err != nil {
				return err
			}
			days, err := app.stats.Forecast(ctx, setIDs, time.Now())
			if err != nil {
				return err
			}
			return c.out.print(days, func(w io.Writer) {
				fmt.Fprintln(w, "DAY\tDUE")
				for _, d := range days {
					fmt.Fprintf(w, "%s\t%d\n", d.Day, d.Due)
				}
			})
		},
	}
	addSetsFlag(cmd, &setFlags)
	return cmd
}

func newTopicsCmd(c *cli) *cobra.Command {
	var setFlags []string
	cmd := &cobra.Command{
		Use:   "topics",
		Short: "Show review proficiency per topic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			app, setIDs, err := c.applicationWithSets(ctx, setFlags)
			if err != nil {
				return err
			}
			scores, err := app.stats.TopicProficiency(ctx, setIDs)
			if err != nil {
				return err
			}
			return c.out.print(scores, func(w io.Writer) {
				fmt.Fprintln(w, "TOPIC\tCARDS\tREVIEWS\tPROFICIENCY")
				for _, s := range scores {
					fmt.Fprintf(w, "%s\t%d\t%d\t%.0f%%\n", s.Topic, s.Cards, s.Reviewed, s.Proficiency*100)
				}
			})
		},
	}
	addSetsFlag(cmd, &setFlags)
	return cmd
}

func addSetsFlag(cmd *cobra.Command, target *[]string) {
	cmd.Flags().StringSliceVarP(target, "set", "s", nil, "set IDs to include (default: all sets)")
}

// applicationWithSets builds the application and resolves the --set flag,
// defaulting to every set in the store.
func (c *cli) applicationWithSets(ctx context.Context, setFlags []string) (*application, []uuid.UUID, error) {
	setIDs, err := parseIDs(setFlags)
	if err != nil {
		return nil, nil, err
	}
	app, err := c.application(ctx)
	if err != nil {
		return nil, nil, err
	}
	if len(setIDs) > 0 {
		return app, setIDs, nil
	}

	sets, err := app.study.ListSets(ctx)
	if err != nil {
		return nil, nil, err
	}
	for _, s := range sets {
		setIDs = append(setIDs, s.ID)
	}
	return app, setIDs, nil
}

func (app *application) printCards(w io.Writer, cards []*domain.Card) {
	fmt.Fprintln(w, "ID\tFRONT\tTOPIC\tDUE\tREVIEWS")
	for _, card := range cards {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", card.ID, card.Front, card.Topic,
			card.NextReviewAt.In(app.calendar.Location()).Format(timeLayout), card.ReviewCount)
	}
}

func parseID(kind, s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s %q: %v", domain.ErrInvalidID, kind, s, err)
	}
	return id, nil
}

func parseIDs(values []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(values))
	for _, v := range values {
		id, err := parseID("set", v)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
