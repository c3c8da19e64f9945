package api

import (
	"context"
	"net/http"

	"agora/core"
	"agora/service"

	"github.com/gorilla/mux"
)

// listQuestions godoc
//
//	@Summary		List questions
//	@Description	Lists visible questions with tag and author filters
//	@Tags			questions
//	@Produce		json
//	@Param			tag	query	string	false	"Filter by tag"
//	@Param			author	query	string	false	"Filter by author ID"
//	@Param			sort	query	string	false	"newest, oldest, votes or answers"
//	@Param			page	query	int	false	"Page number (1-based)"
//	@Param			limit	query	int	false	"Page size"
//	@Success		200	{object}	service.QuestionPage
//	@Failure		400	{object}	api.errorResponse	"Invalid sort"
//	@Router			/api/questions [get]
func (a *API) listQuestions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := core.QuestionFilter{
		Tag:    query.Get("tag"),
		Author: query.Get("author"),
		Sort:   core.QuestionSort(query.Get("sort")),
		Page:   ParsePaginationParams(r, service.DefaultPageLimit, service.MaxPageLimit),
	}
	page, err := a.services.Questions.List(r.Context(), filter)
	if err != nil {
		a.handleServiceError(w, r, "list questions", err)
		return
	}
	a.respondJSON(w, page, http.StatusOK)
}

// createQuestion godoc
//
//	@Summary		Create question
//	@Description	Posts a question and notifies mentioned users
//	@Tags			questions
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			question	body	api.questionRequest	true	"Question"
//	@Success		201	{object}	core.Question
//	@Failure		400	{object}	api.errorResponse	"Invalid request"
//	@Failure		401	{object}	api.errorResponse	"Authentication required"
//	@Failure		403	{object}	api.errorResponse	"Forbidden"
//	@Router			/api/questions [post]
func (a *API) createQuestion(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		a.handleServiceError(w, r, "create question", err)
		return
	}
	if err := validateRequest(&req); err != nil {
		a.handleServiceError(w, r, "create question", err)
		return
	}

	q, err := a.services.Questions.Create(r.Context(), GetActor(r.Context()), service.QuestionInput{
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
	})
	if err != nil {
		a.handleServiceError(w, r, "create question", err)
		return
	}
	a.respondJSON(w, q, http.StatusCreated)
}

// getQuestion godoc
//
//	@Summary		Get question
//	@Description	Returns a question with its visible answers, accepted first
//	@Tags			questions
//	@Produce		json
//	@Param			id	path	string	true	"Question ID"
//	@Success		200	{object}	service.QuestionDetail
//	@Failure		404	{object}	api.errorResponse	"Question not found"
//	@Router			/api/questions/{id} [get]
func (a *API) getQuestion(w http.ResponseWriter, r *http.Request) {
	detail, err := a.services.Questions.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.handleServiceError(w, r, "get question", err)
		return
	}
	a.respondJSON(w, detail, http.StatusOK)
}

// updateQuestion godoc
//
//	@Summary		Update question
//	@Description	Edits a question; author or admin only
//	@Tags			questions
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Question ID"
//	@Param			question	body	api.updateQuestionRequest	true	"Fields to change"
//	@Success		200	{object}	core.Question
//	@Failure		400	{object}	api.errorResponse	"Invalid request"
//	@Failure		403	{object}	api.errorResponse	"Forbidden"
//	@Failure		404	{object}	api.errorResponse	"Question not found"
//	@Router			/api/questions/{id} [put]
func (a *API) updateQuestion(w http.ResponseWriter, r *http.Request) {
	var req updateQuestionRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		a.handleServiceError(w, r, "update question", err)
		return
	}
	if err := validateRequest(&req); err != nil {
		a.handleServiceError(w, r, "update question", err)
		return
	}

	q, err := a.services.Questions.Update(r.Context(), GetActor(r.Context()), mux.Vars(r)["id"], service.QuestionInput{
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
	})
	if err != nil {
		a.handleServiceError(w, r, "update question", err)
		return
	}
	a.respondJSON(w, q, http.StatusOK)
}

// deleteQuestion godoc
//
//	@Summary		Delete question
//	@Description	Soft-deletes a question and all of its answers
//	@Tags			questions
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Question ID"
//	@Success		204	"No Content"
//	@Failure		403	{object}	api.errorResponse	"Forbidden"
//	@Failure		404	{object}	api.errorResponse	"Question not found"
//	@Router			/api/questions/{id} [delete]
func (a *API) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	if err := a.services.Deletion.DeleteQuestion(r.Context(), GetActor(r.Context()), mux.Vars(r)["id"]); err != nil {
		a.handleServiceError(w, r, "delete question", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// createAnswer godoc
//
//	@Summary		Answer question
//	@Description	Posts an answer and notifies the question author
//	@Tags			answers
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Question ID"
//	@Param			answer	body	api.answerRequest	true	"Answer"
//	@Success		201	{object}	core.Answer
//	@Failure		400	{object}	api.errorResponse	"Invalid request"
//	@Failure		404	{object}	api.errorResponse	"Question not found"
//	@Router			/api/questions/{id}/answers [post]
func (a *API) createAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		a.handleServiceError(w, r, "create answer", err)
		return
	}
	if err := validateRequest(&req); err != nil {
		a.handleServiceError(w, r, "create answer", err)
		return
	}

	answer, err := a.services.Answers.Create(r.Context(), GetActor(r.Context()), mux.Vars(r)["id"], req.Content)
	if err != nil {
		a.handleServiceError(w, r, "create answer", err)
		return
	}
	a.respondJSON(w, answer, http.StatusCreated)
}

// updateAnswer godoc
//
//	@Summary		Update answer
//	@Description	Edits an answer; author or admin only
//	@Tags			answers
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Answer ID"
//	@Param			answer	body	api.answerRequest	true	"Answer"
//	@Success		200	{object}	core.Answer
//	@Failure		400	{object}	api.errorResponse	"Invalid request"
//	@Failure		403	{object}	api.errorResponse	"Forbidden"
//	@Failure		404	{object}	api.errorResponse	"Answer not found"
//	@Router			/api/answers/{id} [put]
func (a *API) updateAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		a.handleServiceError(w, r, "update answer", err)
		return
	}
	if err := validateRequest(&req); err != nil {
		a.handleServiceError(w, r, "update answer", err)
		return
	}

	answer, err := a.services.Answers.Update(r.Context(), GetActor(r.Context()), mux.Vars(r)["id"], req.Content)
	if err != nil {
		a.handleServiceError(w, r, "update answer", err)
		return
	}
	a.respondJSON(w, answer, http.StatusOK)
}

// deleteAnswer godoc
//
//	@Summary		Delete answer
//	@Description	Soft-deletes an answer and detaches it from its question
//	@Tags			answers
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Answer ID"
//	@Success		204	"No Content"
//	@Failure		403	{object}	api.errorResponse	"Forbidden"
//	@Failure		404	{object}	api.errorResponse	"Answer not found"
//	@Router			/api/answers/{id} [delete]
func (a *API) deleteAnswer(w http.ResponseWriter, r *http.Request) {
	if err := a.services.Deletion.DeleteAnswer(r.Context(), GetActor(r.Context()), mux.Vars(r)["id"]); err != nil {
		a.handleServiceError(w, r, "delete answer", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// voteAnswer godoc
//
//	@Summary		Vote on answer
//	@Description	Casts or switches a vote on an answer
//	@Tags			votes
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Answer ID"
//	@Param			vote	body	api.voteRequest	true	"Vote"
//	@Success		200	{object}	service.VoteResult
//	@Failure		400	{object}	api.errorResponse	"Invalid vote or own answer"
//	@Failure		404	{object}	api.errorResponse	"Answer not found"
//	@Failure		409	{object}	api.errorResponse	"Duplicate vote"
//	@Router			/api/answers/{id}/vote [post]
func (a *API) voteAnswer(w http.ResponseWriter, r *http.Request) {
	a.vote(w, r, a.services.Votes.VoteAnswer)
}

// voteQuestion godoc
//
//	@Summary		Vote on question
//	@Description	Casts or switches a vote on a question
//	@Tags			votes
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Question ID"
//	@Param			vote	body	api.voteRequest	true	"Vote"
//	@Success		200	{object}	service.VoteResult
//	@Failure		400	{object}	api.errorResponse	"Invalid vote or own question"
//	@Failure		404	{object}	api.errorResponse	"Question not found"
//	@Failure		409	{object}	api.errorResponse	"Duplicate vote"
//	@Router			/api/questions/{id}/vote [post]
func (a *API) voteQuestion(w http.ResponseWriter, r *http.Request) {
	a.vote(w, r, a.services.Votes.VoteQuestion)
}

type voteFunc func(ctx context.Context, actor *core.Actor, id string, vote core.VoteType) (*service.VoteResult, error)

func (a *API) vote(w http.ResponseWriter, r *http.Request, cast voteFunc) {
	var req voteRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		a.handleServiceError(w, r, "vote", err)
		return
	}
	if err := validateRequest(&req); err != nil {
		a.handleServiceError(w, r, "vote", err)
		return
	}

	result, err := cast(r.Context(), GetActor(r.Context()), mux.Vars(r)["id"], req.Type)
	if err != nil {
		a.handleServiceError(w, r, "vote", err)
		return
	}
	a.respondJSON(w, result, http.StatusOK)
}

// acceptAnswer godoc
//
//	@Summary		Accept answer
//	@Description	Marks an answer as accepted; question author only
//	@Tags			answers
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Question ID"
//	@Param			answerId	path	string	true	"Answer ID"
//	@Success		200	{object}	service.AcceptResult
//	@Failure		403	{object}	api.errorResponse	"Forbidden"
//	@Failure		404	{object}	api.errorResponse	"Question or answer not found"
//	@Router			/api/questions/{id}/accept/{answerId} [post]
func (a *API) acceptAnswer(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	result, err := a.services.Acceptance.Accept(r.Context(), GetActor(r.Context()), vars["id"], vars["answerId"])
	if err != nil {
		a.handleServiceError(w, r, "accept answer", err)
		return
	}
	a.respondJSON(w, result, http.StatusOK)
}
