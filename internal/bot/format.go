package bot

import (
	"fmt"
	"html"
	"strings"
	"time"
	"unicode"

	"pet-feeding/internal/model"
	"pet-feeding/internal/schedule"
	"pet-feeding/internal/service"
)

const (
	iconReminder = "⏰"
	iconWarning  = "⚠️"
	iconFeeding  = "🍽"
	iconSystem   = "ℹ️"
	iconUnread   = "🆕"
)

func escape(s string) string {
	return html.EscapeString(s)
}

func displayName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "friend"
	}
	runes := []rune(name)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// formatInstant prints only the clock for instants on the same local day as now.
func formatInstant(t, now time.Time, loc *time.Location) string {
	lt, ln := t.In(loc), now.In(loc)
	if lt.Year() == ln.Year() && lt.YearDay() == ln.YearDay() {
		return lt.Format("15:04")
	}
	return lt.Format("Jan 2 15:04")
}

func statusLabel(s schedule.Status) string {
	switch s {
	case schedule.StatusDueSoon:
		return "due soon"
	case schedule.StatusOnTime:
		return "due now"
	case schedule.StatusLate:
		return "late"
	case schedule.StatusMissed:
		return "missed"
	default:
		return "upcoming"
	}
}

func formatNext(cat model.Cat, info service.NextFeedingInfo, now time.Time, loc *time.Location) string {
	if info.NextFeeding == nil {
		return fmt.Sprintf("🐱 <b>%s</b> has no feeding schedule.", escape(cat.Name))
	}
	icon := iconReminder
	if info.Overdue {
		icon = iconWarning
	}
	text := fmt.Sprintf("%s Next feeding for <b>%s</b>: %s (%s)",
		icon, escape(cat.Name), formatInstant(*info.NextFeeding, now, loc), statusLabel(info.Status))
	if info.LastFeeding != nil {
		text += fmt.Sprintf("\n🍽 Last fed %s", formatInstant(*info.LastFeeding, now, loc))
	}
	return text
}

func formatCat(cat model.Cat, info service.NextFeedingInfo, now time.Time, loc *time.Location) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("<b>#%d</b> %s", cat.ID, escape(cat.Name)))
	if h := cat.IntervalHours(); h > 0 {
		b.WriteString(fmt.Sprintf(" · every %dh", h))
	}
	b.WriteByte('\n')
	if info.LastFeeding != nil {
		b.WriteString(fmt.Sprintf("   🍽 Last fed %s\n", formatInstant(*info.LastFeeding, now, loc)))
	} else {
		b.WriteString("   🍽 Not fed yet\n")
	}
	if info.NextFeeding != nil {
		icon := iconReminder
		if info.Overdue {
			icon = iconWarning
		}
		b.WriteString(fmt.Sprintf("   %s Next %s (%s)\n", icon, formatInstant(*info.NextFeeding, now, loc), statusLabel(info.Status)))
	}
	b.WriteByte('\n')
	return b.String()
}

func notificationIcon(t model.NotificationType) string {
	switch t {
	case model.NotificationReminder:
		return iconReminder
	case model.NotificationWarning:
		return iconWarning
	case model.NotificationFeeding:
		return iconFeeding
	default:
		return iconSystem
	}
}

func formatPush(n model.Notification) string {
	return fmt.Sprintf("%s <b>%s</b>\n%s", notificationIcon(n.Type), escape(n.Title), escape(n.Message))
}

func formatNotificationLine(n model.Notification, loc *time.Location) string {
	prefix := ""
	if !n.IsRead {
		prefix = iconUnread + " "
	}
	return fmt.Sprintf("%s%s <b>%s</b> · %s\n%s\n\n",
		prefix, notificationIcon(n.Type), escape(n.Title), n.CreatedAt.In(loc).Format("Jan 2 15:04"), escape(n.Message))
}
