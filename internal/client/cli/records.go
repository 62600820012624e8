package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/fintrack/internal/client/models"
	"github.com/dmitrijs2005/fintrack/internal/ledger"
)

const fieldsHelp = `Fields are given as key=value pairs using the record's JSON field names,
for example amount=12.50 currency=EUR categoryId=<id>. "phones" takes a
comma-separated list, "closed" takes true/false, and key= removes a field.`

func collectionArg(args []string) (ledger.Collection, error) {
	return ledger.ParseCollection(args[0])
}

func (a *App) addCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:     "add <collection> [key=value...]",
		GroupID: "records",
		Short:   "Add a record",
		Long:    "Add a record to one of: " + collectionNames() + ".\n\n" + fieldsHelp,
		Example: `  add expenses amount=12.50 currency=EUR --date yesterday
  add contacts name="Ann Lee" phones=+371123,+371456
  add budgets amount=300 --date 2026-06-01`,
		Args:    cobra.MinimumNArgs(1),
		PreRunE: a.requireLogin,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := collectionArg(args)
			if err != nil {
				return err
			}
			fields := map[string]any{}
			if err := a.applyFields(c, fields, args[1:], date, true); err != nil {
				return err
			}
			data, err := json.Marshal(fields)
			if err != nil {
				return err
			}

			rec, err := a.records.Create(cmd.Context(), c, data)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Added %s %s (queued for sync)\n", c, rec.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&date, "date", "d", "", `record date: YYYY-MM-DD or e.g. "yesterday" (default today)`)
	return cmd
}

func (a *App) editCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:     "edit <collection> <id> [key=value...]",
		GroupID: "records",
		Short:   "Change fields of a record",
		Long:    "Change fields of a record. Fields not mentioned keep their value.\n\n" + fieldsHelp,
		Args:    cobra.MinimumNArgs(2),
		PreRunE: a.requireLogin,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := collectionArg(args)
			if err != nil {
				return err
			}
			rec, err := a.records.Get(cmd.Context(), c, args[1])
			if err != nil {
				return err
			}

			fields := map[string]any{}
			if err := json.Unmarshal(rec.Data, &fields); err != nil {
				return fmt.Errorf("failed to decode %s %s: %w", c, rec.ID, err)
			}
			if err := a.applyFields(c, fields, args[2:], date, false); err != nil {
				return err
			}
			data, err := json.Marshal(fields)
			if err != nil {
				return err
			}

			if _, err := a.records.Update(cmd.Context(), c, rec.ID, data); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Updated %s %s (queued for sync)\n", c, rec.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&date, "date", "d", "", "new record date")
	return cmd
}

func (a *App) archiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "archive <collection> <id>",
		Aliases: []string{"rm"},
		GroupID: "records",
		Short:   "Archive a record; it stays restorable",
		Args:    cobra.ExactArgs(2),
		PreRunE: a.requireLogin,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := collectionArg(args)
			if err != nil {
				return err
			}
			if _, err := a.records.Archive(cmd.Context(), c, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Archived %s %s\n", c, args[1])
			return nil
		},
	}
}

func (a *App) restoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "restore <collection> <id>",
		GroupID: "records",
		Short:   "Bring an archived record back",
		Args:    cobra.ExactArgs(2),
		PreRunE: a.requireLogin,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := collectionArg(args)
			if err != nil {
				return err
			}
			if _, err := a.records.Restore(cmd.Context(), c, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Restored %s %s\n", c, args[1])
			return nil
		},
	}
}

func (a *App) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "show <collection> <id>",
		GroupID: "records",
		Short:   "Show one record",
		Args:    cobra.ExactArgs(2),
		PreRunE: a.requireLogin,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := collectionArg(args)
			if err != nil {
				return err
			}
			rec, err := a.records.Get(cmd.Context(), c, args[1])
			if err != nil {
				return err
			}
			payload, err := rec.Payload()
			if err != nil {
				return err
			}
			var pretty map[string]any
			if err := json.Unmarshal(payload, &pretty); err != nil {
				return err
			}
			out, _ := json.MarshalIndent(pretty, "", "  ")
			fmt.Fprintln(a.out, string(out))
			fmt.Fprintln(a.out, syncBadge(rec.Synced))
			return nil
		},
	}
}

func (a *App) listCmd() *cobra.Command {
	var (
		from, to string
		all      bool
		limit    int
	)
	cmd := &cobra.Command{
		Use:     "list <collection>",
		Aliases: []string{"l", "ls"},
		GroupID: "records",
		Short:   "List records, optionally within a date range",
		Args:    cobra.ExactArgs(1),
		PreRunE: a.requireLogin,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := collectionArg(args)
			if err != nil {
				return err
			}
			q := models.RecordQuery{IncludeArchived: all, Limit: limit}
			if q.From, err = a.optionalDate(from); err != nil {
				return err
			}
			if q.To, err = a.optionalDate(to); err != nil {
				return err
			}

			recs, err := a.records.List(cmd.Context(), c, q)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Fprintln(a.out, "No records.")
				return nil
			}
			fmt.Fprintln(a.out, recordTable(recs))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&from, "from", "", "earliest date, inclusive")
	f.StringVar(&to, "to", "", "latest date, inclusive")
	f.BoolVar(&all, "all", false, "include archived records")
	f.IntVar(&limit, "limit", 0, "maximum number of records")
	return cmd
}

// applyFields writes key=value pairs and the --date value into fields. On
// create, a dated collection gets today's date when none was given.
func (a *App) applyFields(c ledger.Collection, fields map[string]any, pairs []string, date string, create bool) error {
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return fmt.Errorf("expected key=value, got %q", p)
		}
		switch {
		case v == "":
			delete(fields, k)
		case k == "phones":
			var phones []string
			for _, ph := range strings.Split(v, ",") {
				phones = append(phones, strings.TrimSpace(ph))
			}
			fields[k] = phones
		case k == "closed":
			fields[k] = v == "true" || v == "yes" || v == "1"
		default:
			fields[k] = v
		}
	}

	dateField, layout := dateFieldOf(c)
	if dateField == "" {
		if date != "" {
			return fmt.Errorf("%s records have no date", c)
		}
		return nil
	}
	if date == "" {
		if _, set := fields[dateField]; set || !create {
			return nil
		}
		fields[dateField] = a.now().Format(layout)
		return nil
	}
	t, err := ParseDate(date, a.now())
	if err != nil {
		return err
	}
	fields[dateField] = t.Format(layout)
	return nil
}

func (a *App) optionalDate(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	t, err := ParseDate(s, a.now())
	if err != nil {
		return "", err
	}
	return t.Format(ledger.DateLayout), nil
}

func dateFieldOf(c ledger.Collection) (string, string) {
	switch c {
	case ledger.Contacts, ledger.Categories:
		return "", ""
	case ledger.Budgets:
		return "month", ledger.MonthLayout
	default:
		return "date", ledger.DateLayout
	}
}

func collectionNames() string {
	names := make([]string, 0, len(ledger.All))
	for _, c := range ledger.All {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}
