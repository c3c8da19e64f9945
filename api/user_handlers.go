package api

import (
	"net/http"
	"strconv"

	"agora/core"
	"agora/service"

	"github.com/gorilla/mux"
)

// listNotifications godoc
//
//	@Summary		List notifications
//	@Description	Lists the caller's notifications, newest first
//	@Tags			notifications
//	@Produce		json
//	@Security		BearerAuth
//	@Param			page	query	int	false	"Page number (1-based)"
//	@Param			limit	query	int	false	"Page size"
//	@Success		200	{object}	service.NotificationPage
//	@Failure		401	{object}	api.errorResponse	"Authentication required"
//	@Router			/api/notifications [get]
func (a *API) listNotifications(w http.ResponseWriter, r *http.Request) {
	page, err := a.services.Notifications.List(r.Context(), GetActor(r.Context()),
		ParsePaginationParams(r, service.DefaultPageLimit*2, service.MaxPageLimit))
	if err != nil {
		a.handleServiceError(w, r, "list notifications", err)
		return
	}
	a.respondJSON(w, page, http.StatusOK)
}

// unreadCount godoc
//
//	@Summary		Unread count
//	@Description	Counts the caller's unread notifications
//	@Tags			notifications
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	map[string]int64
//	@Failure		401	{object}	api.errorResponse	"Authentication required"
//	@Router			/api/notifications/unread-count [get]
func (a *API) unreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := a.services.Notifications.UnreadCount(r.Context(), GetActor(r.Context()))
	if err != nil {
		a.handleServiceError(w, r, "count notifications", err)
		return
	}
	a.respondJSON(w, map[string]int64{"unread": n}, http.StatusOK)
}

// markNotificationRead godoc
//
//	@Summary		Mark read
//	@Description	Marks one notification read; recipient only
//	@Tags			notifications
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Notification ID"
//	@Success		204	"No Content"
//	@Failure		403	{object}	api.errorResponse	"Forbidden"
//	@Failure		404	{object}	api.errorResponse	"Notification not found"
//	@Router			/api/notifications/{id}/read [put]
func (a *API) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := a.services.Notifications.MarkRead(r.Context(), GetActor(r.Context()), mux.Vars(r)["id"]); err != nil {
		a.handleServiceError(w, r, "mark notification read", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// markAllNotificationsRead godoc
//
//	@Summary		Mark all read
//	@Description	Marks every notification of the caller read
//	@Tags			notifications
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	map[string]int64
//	@Failure		401	{object}	api.errorResponse	"Authentication required"
//	@Router			/api/notifications/read-all [put]
func (a *API) markAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	n, err := a.services.Notifications.MarkAllRead(r.Context(), GetActor(r.Context()))
	if err != nil {
		a.handleServiceError(w, r, "mark notifications read", err)
		return
	}
	a.respondJSON(w, map[string]int64{"updated": n}, http.StatusOK)
}

// deleteNotification godoc
//
//	@Summary		Delete notification
//	@Description	Deletes one notification; recipient only
//	@Tags			notifications
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Notification ID"
//	@Success		204	"No Content"
//	@Failure		403	{object}	api.errorResponse	"Forbidden"
//	@Failure		404	{object}	api.errorResponse	"Notification not found"
//	@Router			/api/notifications/{id} [delete]
func (a *API) deleteNotification(w http.ResponseWriter, r *http.Request) {
	if err := a.services.Notifications.Delete(r.Context(), GetActor(r.Context()), mux.Vars(r)["id"]); err != nil {
		a.handleServiceError(w, r, "delete notification", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getCurrentUser godoc
//
//	@Summary		Current user
//	@Description	Returns the caller's profile
//	@Tags			users
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	service.Profile
//	@Failure		401	{object}	api.errorResponse	"Authentication required"
//	@Router			/api/users/me [get]
func (a *API) getCurrentUser(w http.ResponseWriter, r *http.Request) {
	actor := GetActor(r.Context())
	if actor == nil {
		a.handleServiceError(w, r, "get current user", core.ErrUnauthenticated)
		return
	}
	profile, err := a.services.Users.Profile(r.Context(), actor.UserID)
	if err != nil {
		a.handleServiceError(w, r, "get current user", err)
		return
	}
	a.respondJSON(w, profile, http.StatusOK)
}

// getUserProfile godoc
//
//	@Summary		User profile
//	@Description	Returns a user with stats and recent activity
//	@Tags			users
//	@Produce		json
//	@Param			id	path	string	true	"User ID"
//	@Success		200	{object}	service.Profile
//	@Failure		404	{object}	api.errorResponse	"User not found"
//	@Router			/api/users/{id} [get]
func (a *API) getUserProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := a.services.Users.Profile(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.handleServiceError(w, r, "get user profile", err)
		return
	}
	a.respondJSON(w, profile, http.StatusOK)
}

// listUserAnswers godoc
//
//	@Summary		User answers
//	@Description	Lists a user's visible answers
//	@Tags			users
//	@Produce		json
//	@Param			id	path	string	true	"User ID"
//	@Param			page	query	int	false	"Page number (1-based)"
//	@Param			limit	query	int	false	"Page size"
//	@Success		200	{object}	map[string]interface{}
//	@Failure		404	{object}	api.errorResponse	"User not found"
//	@Router			/api/users/{id}/answers [get]
func (a *API) listUserAnswers(w http.ResponseWriter, r *http.Request) {
	page := ParsePaginationParams(r, service.DefaultPageLimit, service.MaxPageLimit)
	answers, total, err := a.services.Answers.ListByAuthor(r.Context(), mux.Vars(r)["id"], page)
	if err != nil {
		a.handleServiceError(w, r, "list answers", err)
		return
	}
	a.respondJSON(w, map[string]interface{}{
		"answers": answers,
		"total":   total,
		"page":    page.Page,
		"limit":   page.Limit,
	}, http.StatusOK)
}

// toggleBan godoc
//
//	@Summary		Toggle ban
//	@Description	Bans or unbans a user; admins cannot be banned
//	@Tags			admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	string	true	"User ID"
//	@Success		200	{object}	core.User
//	@Failure		403	{object}	api.errorResponse	"Forbidden"
//	@Failure		404	{object}	api.errorResponse	"User not found"
//	@Router			/api/admin/users/{id}/ban [put]
func (a *API) toggleBan(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	user, err := a.services.Users.ToggleBan(r.Context(), GetActor(r.Context()), userID)
	if err != nil {
		a.handleServiceError(w, r, "toggle ban", err)
		return
	}
	a.forgetIdentity(userID)
	a.respondJSON(w, user, http.StatusOK)
}

// awardBadge godoc
//
//	@Summary		Award badge
//	@Description	Grants a badge label to a user
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	string	true	"User ID"
//	@Param			badge	body	api.badgeRequest	true	"Badge"
//	@Success		202	"Accepted"
//	@Failure		400	{object}	api.errorResponse	"Invalid request"
//	@Failure		403	{object}	api.errorResponse	"Forbidden"
//	@Failure		404	{object}	api.errorResponse	"User not found"
//	@Router			/api/admin/users/{id}/badges [post]
func (a *API) awardBadge(w http.ResponseWriter, r *http.Request) {
	var req badgeRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		a.handleServiceError(w, r, "award badge", err)
		return
	}
	if err := validateRequest(&req); err != nil {
		a.handleServiceError(w, r, "award badge", err)
		return
	}
	if err := a.services.Users.AwardBadge(r.Context(), GetActor(r.Context()), mux.Vars(r)["id"], req.Badge); err != nil {
		a.handleServiceError(w, r, "award badge", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// requireAdmin writes the error response and returns false for non-admins
func (a *API) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	actor := GetActor(r.Context())
	if actor == nil {
		a.handleServiceError(w, r, "authorize", core.ErrUnauthenticated)
		return false
	}
	if !actor.IsAdmin() {
		a.handleServiceError(w, r, "authorize", core.ErrForbidden)
		return false
	}
	return true
}

// adminDashboard godoc
//
//	@Summary		Dashboard
//	@Description	Site totals, recent activity and top users by reputation
//	@Tags			admin
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	service.Dashboard
//	@Failure		401	{object}	api.errorResponse	"Authentication required"
//	@Failure		403	{object}	api.errorResponse	"Admin role required"
//	@Router			/api/admin/stats [get]
func (a *API) adminDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := a.services.Admin.Dashboard(r.Context(), GetActor(r.Context()))
	if err != nil {
		a.handleServiceError(w, r, "load admin dashboard", err)
		return
	}
	a.respondJSON(w, dashboard, http.StatusOK)
}

// adminListUsers godoc
//
//	@Summary		List users
//	@Description	Lists every user, newest first
//	@Tags			admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			page	query	int	false	"Page number (1-based)"
//	@Param			limit	query	int	false	"Page size"
//	@Success		200	{object}	service.UserPage
//	@Failure		401	{object}	api.errorResponse	"Authentication required"
//	@Failure		403	{object}	api.errorResponse	"Admin role required"
//	@Router			/api/admin/users [get]
func (a *API) adminListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := a.services.Admin.Users(r.Context(), GetActor(r.Context()),
		ParsePaginationParams(r, 20, service.MaxPageLimit))
	if err != nil {
		a.handleServiceError(w, r, "list users", err)
		return
	}
	a.respondJSON(w, page, http.StatusOK)
}

// adminListQuestions godoc
//
//	@Summary		List all questions
//	@Description	Lists questions, optionally including soft-deleted ones
//	@Tags			admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			includeDeleted	query	bool	false	"Include soft-deleted questions"
//	@Param			page	query	int	false	"Page number (1-based)"
//	@Param			limit	query	int	false	"Page size"
//	@Success		200	{object}	service.QuestionPage
//	@Failure		401	{object}	api.errorResponse	"Authentication required"
//	@Failure		403	{object}	api.errorResponse	"Admin role required"
//	@Router			/api/admin/questions [get]
func (a *API) adminListQuestions(w http.ResponseWriter, r *http.Request) {
	includeDeleted := r.URL.Query().Get("includeDeleted") == "true"
	page, err := a.services.Admin.Questions(r.Context(), GetActor(r.Context()), includeDeleted,
		ParsePaginationParams(r, 20, service.MaxPageLimit))
	if err != nil {
		a.handleServiceError(w, r, "list questions", err)
		return
	}
	a.respondJSON(w, page, http.StatusOK)
}

// runRepair godoc
//
//	@Summary		Repair
//	@Description	Finishes interrupted cascades and re-syncs acceptance flags
//	@Tags			admin
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	service.RepairReport
//	@Failure		403	{object}	api.errorResponse	"Admin role required"
//	@Router			/api/admin/repair [post]
func (a *API) runRepair(w http.ResponseWriter, r *http.Request) {
	if !a.requireAdmin(w, r) {
		return
	}
	report, err := a.services.Deletion.Repair(r.Context())
	if err != nil {
		a.handleServiceError(w, r, "run repair", err)
		return
	}
	a.respondJSON(w, report, http.StatusOK)
}

// listSideEffectFailures godoc
//
//	@Summary		Side-effect failures
//	@Description	Lists recent failed reputation and notification writes
//	@Tags			admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			limit	query	int	false	"Maximum entries (1-500)"
//	@Success		200	{array}	effects.Failure
//	@Failure		403	{object}	api.errorResponse	"Admin role required"
//	@Router			/api/admin/side-effect-failures [get]
func (a *API) listSideEffectFailures(w http.ResponseWriter, r *http.Request) {
	if !a.requireAdmin(w, r) {
		return
	}
	limit := 50
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 500 {
		limit = l
	}
	if a.services.Failures == nil {
		a.respondJSON(w, []interface{}{}, http.StatusOK)
		return
	}
	failures, err := a.services.Failures.Recent(r.Context(), limit)
	if err != nil {
		a.handleServiceError(w, r, "list side effect failures", err)
		return
	}
	a.respondJSON(w, failures, http.StatusOK)
}
