package board

import "github.com/harborview/taskboard/internal/models"

// Action is a board operation gated by a capability check.
type Action string

const (
	ActionEditTask      Action = "task:edit"
	ActionDeleteTask    Action = "task:delete"
	ActionMoveTask      Action = "task:move"
	ActionCommentAdd    Action = "comment:add"
	ActionCommentEdit   Action = "comment:edit"
	ActionCommentDelete Action = "comment:delete"
	ActionReportTask    Action = "task:report"
)

// ActionSet is the set of actions a user may perform on a resource.
type ActionSet map[Action]struct{}

// Has reports whether the action is in the set.
func (s ActionSet) Has(action Action) bool {
	_, ok := s[action]
	return ok
}

func (s ActionSet) add(actions ...Action) {
	for _, a := range actions {
		s[a] = struct{}{}
	}
}

// Can computes the actions the user may perform on the given resource.
// Every component consults this one function instead of repeating role and
// ownership checks at each call site. The server remains the final
// authority; these checks only decide which affordances the UI presents.
//
// Supported resource types: models.Task and models.Comment.
func Can(user models.User, resource interface{}) ActionSet {
	set := make(ActionSet)

	switch res := resource.(type) {
	case models.Task:
		set.add(ActionEditTask, ActionMoveTask, ActionCommentAdd, ActionReportTask)
		if user.IsAdmin() {
			set.add(ActionDeleteTask)
		}
	case models.Comment:
		// Comments are editable and deletable only by their author.
		if user.ID != "" && user.ID == res.AuthorID {
			set.add(ActionCommentEdit, ActionCommentDelete)
		}
	}

	return set
}
