package handlers

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/projecto/projecto/internal/apperr"
	"github.com/projecto/projecto/internal/feed"
	"github.com/projecto/projecto/internal/todos"
)

// abortErr renders a service error with its mapped HTTP status
func abortErr(c *gin.Context, err error) {
	c.AbortWithStatusJSON(apperr.Status(err), gin.H{"error": err.Error()})
}

// intQuery parses an optional integer query parameter, falling back to def
// when absent. A present but malformed value is a bad request.
func intQuery(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("malformed %s parameter %q: %w", name, raw, apperr.ErrBadRequest)
	}
	return n, nil
}

func feedCommentJSON(v feed.CommentView) gin.H {
	return gin.H{
		"key":     v.Comment.Key,
		"content": v.Comment.Content.Content,
		"date":    v.Comment.Date,
		"author":  v.Author.ClientView(),
	}
}

func feedItemJSON(v *feed.ItemView) gin.H {
	out := gin.H{
		"key":     v.Item.Key,
		"content": v.Item.Content.Content,
		"date":    v.Item.Date,
		"type":    v.Item.Type,
		"author":  v.Author.ClientView(),
	}
	if v.Comments != nil {
		expanded := make([]gin.H, 0, len(v.Comments))
		for _, cv := range v.Comments {
			expanded = append(expanded, feedCommentJSON(cv))
		}
		out["children"] = expanded
	} else {
		out["children"] = v.CommentKeys
	}
	return out
}

func todoCommentJSON(v todos.CommentView) gin.H {
	return gin.H{
		"key":     v.Comment.Key,
		"content": v.Comment.Content.Content,
		"date":    v.Comment.Date,
		"author":  v.Author.ClientView(),
	}
}

func todoJSON(v *todos.TodoView) gin.H {
	out := gin.H{
		"key":      v.Todo.Key,
		"title":    v.Todo.Title,
		"content":  v.Todo.Content.Content,
		"date":     v.Todo.Date,
		"done":     v.Todo.Done,
		"tags":     v.Todo.Tags,
		"assigned": v.Todo.Assigned,
		"author":   v.Author.ClientView(),
	}
	if v.Todo.Due != nil {
		out["due"] = v.Todo.Due
	}
	if v.Comments != nil {
		expanded := make([]gin.H, 0, len(v.Comments))
		for _, cv := range v.Comments {
			expanded = append(expanded, todoCommentJSON(cv))
		}
		out["children"] = expanded
	} else {
		out["children"] = v.CommentKeys
	}
	return out
}
