// internal/app/features/auditlog/list.go
package auditlog

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	uierrors "github.com/dalemusser/orghub/internal/app/features/errors"
	"github.com/dalemusser/orghub/internal/app/store/audit"
	"github.com/dalemusser/orghub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const pageSize = 50

// ServeList handles GET /api/admin/audit.
//
// Query parameters: category, event_type, organization_id, start_date and
// end_date (YYYY-MM-DD, end date inclusive), page.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	category := strings.TrimSpace(q.Get("category"))
	if !categories[category] {
		uierrors.WriteInvalid(w, map[string]string{"category": "category must be one of auth, org, security."})
		return
	}

	page := 1
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		page = p
	}

	filter := audit.QueryFilter{
		Category:  category,
		EventType: strings.TrimSpace(q.Get("event_type")),
		Limit:     pageSize,
		Offset:    int64((page - 1) * pageSize),
	}
	fields := map[string]string{}
	if s := strings.TrimSpace(q.Get("organization_id")); s != "" {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			fields["organization_id"] = "organization_id must be a valid id."
		} else {
			filter.OrganizationID = &id
		}
	}
	if s := strings.TrimSpace(q.Get("start_date")); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			fields["start_date"] = "start_date must be YYYY-MM-DD."
		} else {
			filter.StartTime = &t
		}
	}
	if s := strings.TrimSpace(q.Get("end_date")); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			fields["end_date"] = "end_date must be YYYY-MM-DD."
		} else {
			end := t.Add(24*time.Hour - time.Nanosecond)
			filter.EndTime = &end
		}
	}
	if len(fields) > 0 {
		uierrors.WriteInvalid(w, fields)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "audit log list")
	defer cancel()

	events, err := h.Audit.Query(ctx, filter)
	if err != nil {
		h.ErrLog.Log500(w, r, "query audit events", err)
		return
	}
	total, err := h.Audit.CountByFilter(ctx, filter)
	if err != nil {
		h.ErrLog.Log500(w, r, "count audit events", err)
		return
	}

	userIDs := map[primitive.ObjectID]struct{}{}
	orgIDs := map[primitive.ObjectID]struct{}{}
	for _, e := range events {
		if e.ActorID != nil {
			userIDs[*e.ActorID] = struct{}{}
		}
		if e.UserID != nil {
			userIDs[*e.UserID] = struct{}{}
		}
		if e.OrganizationID != nil {
			orgIDs[*e.OrganizationID] = struct{}{}
		}
	}

	userNames := map[primitive.ObjectID]string{}
	if users, err := h.Users.GetMany(ctx, keys(userIDs)); err != nil {
		h.Log.Warn("failed to fetch user names for audit log", zap.Error(err))
	} else {
		for _, u := range users {
			userNames[u.ID] = u.FullName
		}
	}
	orgNames := map[primitive.ObjectID]string{}
	if orgs, err := h.Orgs.GetMany(ctx, keys(orgIDs)); err != nil {
		h.Log.Warn("failed to fetch organization names for audit log", zap.Error(err))
	} else {
		for _, o := range orgs {
			orgNames[o.ID] = o.Name
		}
	}

	items := make([]listItem, 0, len(events))
	for _, e := range events {
		item := listItem{
			ID:            e.ID.Hex(),
			Timestamp:     e.Timestamp,
			Category:      e.Category,
			EventType:     e.EventType,
			IP:            e.IP,
			Success:       e.Success,
			FailureReason: e.FailureReason,
			Details:       e.Details,
		}
		if e.ActorID != nil {
			item.ActorID, item.ActorName = e.ActorID.Hex(), userNames[*e.ActorID]
		}
		if e.UserID != nil {
			item.UserID, item.UserName = e.UserID.Hex(), userNames[*e.UserID]
		}
		if e.OrganizationID != nil {
			item.OrganizationID, item.OrgName = e.OrganizationID.Hex(), orgNames[*e.OrganizationID]
		}
		items = append(items, item)
	}

	totalPages := int((total + pageSize - 1) / pageSize)
	if totalPages < 1 {
		totalPages = 1
	}
	uierrors.WriteJSON(w, http.StatusOK, listResponse{Items: items, Page: page, TotalPages: totalPages, Total: total})
}

func keys(m map[primitive.ObjectID]struct{}) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	return out
}
