package bot

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
)

var adminCommands = map[string]bool{
	"/ban":    true,
	"/unban":  true,
	"/stats":  true,
	"/rating": true,
}

func (h *Handler) handleAdmin(ctx context.Context, u Update, cmd string, args []string) {
	h.logger.Info("operator command",
		zap.Int64("operator", u.UserID),
		zap.String("command", cmd),
		zap.Strings("args", args),
	)

	switch cmd {
	case "/ban":
		if len(args) != 2 {
			h.send(u.UserID, msgAdminUsage)
			return
		}
		target, err1 := strconv.ParseInt(args[0], 10, 64)
		hours, err2 := strconv.Atoi(args[1])
		if err1 != nil || err2 != nil {
			h.send(u.UserID, msgAdminUsage)
			return
		}
		res, err := h.admin.Ban(ctx, target, hours)
		if res.Expiry.IsZero() {
			h.send(u.UserID, fmt.Sprintf(msgAdminFailed, err))
			return
		}
		if err != nil {
			// the ban holds in process; only persistence failed
			h.logger.Error("operator ban not persisted", zap.Int64("user_id", target), zap.Error(err))
		}
		h.announceBan(target, res.Expiry, "admin", res.Ended)
		h.send(u.UserID, fmt.Sprintf(msgAdminBanned, target, res.Expiry.UTC().Format(time.RFC3339)))

	case "/unban":
		if len(args) != 1 {
			h.send(u.UserID, msgAdminUsage)
			return
		}
		target, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			h.send(u.UserID, msgAdminUsage)
			return
		}
		if err := h.admin.Unban(ctx, target); err != nil {
			h.send(u.UserID, fmt.Sprintf(msgAdminFailed, err))
			return
		}
		h.send(u.UserID, fmt.Sprintf(msgAdminUnbanned, target))

	case "/stats":
		st, err := h.admin.Stats(ctx)
		if err != nil {
			h.send(u.UserID, fmt.Sprintf(msgAdminFailed, err))
			return
		}
		h.send(u.UserID, fmt.Sprintf(msgAdminStats, st.Registered, st.Banned, st.Waiting, st.ActiveSessions))

	case "/rating":
		if len(args) != 1 {
			h.send(u.UserID, msgAdminUsage)
			return
		}
		target, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			h.send(u.UserID, msgAdminUsage)
			return
		}
		sum, err := h.admin.Reputation(ctx, target)
		if err != nil {
			h.send(u.UserID, fmt.Sprintf(msgAdminFailed, err))
			return
		}
		h.send(u.UserID, fmt.Sprintf(msgAdminRating, target, sum.Positive, sum.Negative))
	}
}
