package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/dmitrijs2005/fintrack/internal/client/models"
	"github.com/dmitrijs2005/fintrack/internal/client/services"
	"github.com/dmitrijs2005/fintrack/internal/client/syncer"
)

var (
	badge = lipgloss.NewStyle().Padding(0, 1).Bold(true)

	okBadge      = badge.Foreground(lipgloss.Color("0")).Background(lipgloss.Color("10"))
	pendingBadge = badge.Foreground(lipgloss.Color("0")).Background(lipgloss.Color("11"))
	alertBadge   = badge.Foreground(lipgloss.Color("15")).Background(lipgloss.Color("9"))
	mutedBadge   = badge.Foreground(lipgloss.Color("15")).Background(lipgloss.Color("8"))

	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// renderStatus draws the sync-health line plus a breakdown of the queue.
func renderStatus(st services.SyncStatus) string {
	var badges []string
	if st.Online {
		badges = append(badges, okBadge.Render("online"))
	} else {
		badges = append(badges, mutedBadge.Render("offline"))
	}

	switch {
	case st.Counts.Attention > 0:
		badges = append(badges, alertBadge.Render(fmt.Sprintf("%d need attention", st.Counts.Attention)))
	case st.Healthy():
		badges = append(badges, okBadge.Render("all synced"))
	}
	if n := st.Counts.Outstanding(); n > 0 {
		badges = append(badges, pendingBadge.Render(fmt.Sprintf("%d waiting", n)))
	}

	var b strings.Builder
	b.WriteString(strings.Join(badges, " "))
	fmt.Fprintf(&b, "\npending %d  syncing %d  failed %d  done %d  unsynced records %d",
		st.Counts.Pending, st.Counts.Syncing, st.Counts.Failed, st.Counts.Done, st.Unsynced)
	if !st.LastSync.IsZero() {
		fmt.Fprintf(&b, "\nlast clean sync %s", st.LastSync.Local().Format(time.DateTime))
	}
	if st.LastRun != nil {
		fmt.Fprintf(&b, "\nlast run: %s", renderRun(*st.LastRun))
	}
	return b.String()
}

func renderRun(r syncer.RunResult) string {
	s := fmt.Sprintf("%d sent, %d ok, %d gone on server, %d will retry, %d rejected, %d held back",
		r.Attempted, r.Succeeded, r.Terminal, r.Failed, r.Permanent, r.Skipped)
	if r.Attention > 0 {
		s += fmt.Sprintf(", %d need attention", r.Attention)
	}
	if r.Err != nil {
		s += " (stopped: " + r.Err.Error() + ")"
	}
	return s
}

func syncBadge(synced bool) string {
	if synced {
		return okBadge.Render("synced")
	}
	return pendingBadge.Render("not synced")
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func recordTable(recs []*models.Record) string {
	t := newTable("ID", "DATE", "DATA", "STATE")
	for _, r := range recs {
		state := "synced"
		if !r.Synced {
			state = "pending"
		}
		if r.IsArchived {
			state += ", archived"
		}
		t.Row(r.ID, r.EventDate, truncate(string(r.Data), 60), state)
	}
	return t.String()
}

func queueTable(entries []*models.QueueEntry) string {
	t := newTable("ENTRY", "ACTION", "COLLECTION", "RECORD", "STATUS", "RETRIES", "LAST ERROR")
	for _, e := range entries {
		status := string(e.Status)
		if e.PermanentError {
			status += " (held)"
		}
		t.Row(strconv.FormatInt(e.ID, 10), string(e.Action), string(e.Collection), e.LocalID,
			status, strconv.Itoa(e.RetryCount), truncate(e.LastError, 40))
	}
	return t.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
