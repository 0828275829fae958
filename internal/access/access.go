// Package access classifies a principal's role on a project. The predicates
// are pure and must be evaluated against a freshly loaded project on every
// request: membership can change between requests.
package access

import "github.com/projecto/projecto/internal/models"

// Access reports whether the principal may read and write project-scoped
// resources (feed, todos, files): true iff owner or collaborator.
func Access(userKey string, p *models.Project) bool {
	return contains(p.Owners, userKey) || contains(p.Collaborators, userKey)
}

// Manager reports whether the principal may mutate project membership and
// list members: true iff owner.
func Manager(userKey string, p *models.Project) bool {
	return contains(p.Owners, userKey)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
