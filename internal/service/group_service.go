package service

import (
	"context"
	"log/slog"
	"net/url"
	"slices"
	"strings"

	"github.com/mmynk/splitplus/internal/metrics"
	"github.com/mmynk/splitplus/internal/models"
)

// GroupService keeps group membership lists. Invited users wait in
// PendingMembers until they accept; users asking to join wait in JoinRequests
// until a member approves them.
type GroupService struct {
	groups   GroupStore
	expenses ExpenseStore
	hooks    hookRunner
	metrics  *metrics.Metrics
}

// NewGroupService creates a new GroupService with the given storage backends.
func NewGroupService(groups GroupStore, expenses ExpenseStore, opts ...Option) *GroupService {
	o := buildOptions(opts)
	return &GroupService{
		groups:   groups,
		expenses: expenses,
		hooks:    hookRunner{hooks: o.hooks},
		metrics:  o.metrics,
	}
}

// CreateGroup creates a group with the creator as its only active member.
// Everyone in invitees is added as pending.
func (s *GroupService) CreateGroup(ctx context.Context, name, creatorID string, invitees []string) (*models.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyGroupName
	}

	pending := []string{}
	for _, id := range invitees {
		if id != "" && id != creatorID && !slices.Contains(pending, id) {
			pending = append(pending, id)
		}
	}

	group := &models.Group{
		Name:           name,
		Members:        []string{creatorID},
		PendingMembers: pending,
		JoinRequests:   []string{},
		CreatedBy:      creatorID,
		StorageType:    models.StorageLocal,
	}
	if err := s.groups.Create(ctx, group); err != nil {
		slog.Error("CreateGroup failed", "error", err)
		return nil, &PersistenceError{Op: "create group", Err: err}
	}

	s.metrics.GroupCommitted("create group")
	slog.Info("Group created", "group_id", group.ID, "name", group.Name, "invited", len(pending))
	return group, nil
}

// GetGroup retrieves a group by ID.
func (s *GroupService) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	if groupID == "" {
		return nil, ErrGroupRequired
	}
	g, err := s.groups.Get(ctx, groupID)
	if err != nil {
		return nil, storeErr("get group", err)
	}
	return g, nil
}

// ListUserGroups returns the groups userID is an active member of.
func (s *GroupService) ListUserGroups(ctx context.Context, userID string) ([]*models.Group, error) {
	return s.filter(ctx, func(g *models.Group) bool { return g.IsMember(userID) })
}

// PendingInvites returns the groups that invited userID.
func (s *GroupService) PendingInvites(ctx context.Context, userID string) ([]*models.Group, error) {
	return s.filter(ctx, func(g *models.Group) bool { return slices.Contains(g.PendingMembers, userID) })
}

// InviteMember adds userID to the group's pending list unless they are
// already a member or already invited.
func (s *GroupService) InviteMember(ctx context.Context, groupID, userID string) (*models.Group, error) {
	return s.mutate(ctx, groupID, "invite member", func(g *models.Group) error {
		if !g.IsMember(userID) && !slices.Contains(g.PendingMembers, userID) {
			g.PendingMembers = append(g.PendingMembers, userID)
		}
		return nil
	})
}

// AcceptInvite turns a pending invite into active membership.
func (s *GroupService) AcceptInvite(ctx context.Context, groupID, userID string) (*models.Group, error) {
	return s.mutate(ctx, groupID, "accept invite", func(g *models.Group) error {
		if !slices.Contains(g.PendingMembers, userID) {
			return ErrNotInvited
		}
		g.PendingMembers = remove(g.PendingMembers, userID)
		g.Members = addUnique(g.Members, userID)
		return nil
	})
}

// DeclineInvite drops a pending invite.
func (s *GroupService) DeclineInvite(ctx context.Context, groupID, userID string) (*models.Group, error) {
	return s.mutate(ctx, groupID, "decline invite", func(g *models.Group) error {
		g.PendingMembers = remove(g.PendingMembers, userID)
		return nil
	})
}

// RequestJoin records that userID wants to join the group.
func (s *GroupService) RequestJoin(ctx context.Context, groupID, userID string) (*models.Group, error) {
	return s.mutate(ctx, groupID, "request join", func(g *models.Group) error {
		if !g.IsMember(userID) && !slices.Contains(g.JoinRequests, userID) {
			g.JoinRequests = append(g.JoinRequests, userID)
		}
		return nil
	})
}

// ApproveJoinRequest turns a join request into active membership.
func (s *GroupService) ApproveJoinRequest(ctx context.Context, groupID, userID string) (*models.Group, error) {
	return s.mutate(ctx, groupID, "approve join request", func(g *models.Group) error {
		if !slices.Contains(g.JoinRequests, userID) {
			return ErrNoJoinRequest
		}
		g.JoinRequests = remove(g.JoinRequests, userID)
		g.Members = addUnique(g.Members, userID)
		return nil
	})
}

// RejectJoinRequest drops a join request.
func (s *GroupService) RejectJoinRequest(ctx context.Context, groupID, userID string) (*models.Group, error) {
	return s.mutate(ctx, groupID, "reject join request", func(g *models.Group) error {
		g.JoinRequests = remove(g.JoinRequests, userID)
		return nil
	})
}

// ConfigureMirror points the group at a sheet mirror URL, or back to local
// storage when rawURL is empty.
func (s *GroupService) ConfigureMirror(ctx context.Context, groupID, rawURL string) (*models.Group, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL != "" {
		u, err := url.Parse(rawURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, ErrInvalidMirrorURL
		}
	}
	return s.mutate(ctx, groupID, "configure mirror", func(g *models.Group) error {
		if rawURL == "" {
			g.StorageType = models.StorageLocal
			g.ConnectionString = ""
			return nil
		}
		g.StorageType = models.StorageSheet
		g.ConnectionString = rawURL
		return nil
	})
}

// DeleteGroup removes a group and all of its expenses.
func (s *GroupService) DeleteGroup(ctx context.Context, groupID string) error {
	if _, err := s.GetGroup(ctx, groupID); err != nil {
		return err
	}
	if err := s.expenses.DeleteAllByGroup(ctx, groupID); err != nil {
		slog.Error("DeleteGroup failed to delete expenses", "group_id", groupID, "error", err)
		return &PersistenceError{Op: "delete group expenses", Err: err}
	}
	if err := s.groups.Delete(ctx, groupID); err != nil {
		slog.Error("DeleteGroup failed", "group_id", groupID, "error", err)
		return &PersistenceError{Op: "delete group", Err: err}
	}
	s.metrics.GroupCommitted("delete group")
	slog.Info("Group deleted", "group_id", groupID)
	return nil
}

// Wait blocks until every commit hook fired so far has finished.
func (s *GroupService) Wait() {
	s.hooks.wait()
}

func (s *GroupService) filter(ctx context.Context, keep func(*models.Group) bool) ([]*models.Group, error) {
	all, err := s.groups.List(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "list groups", Err: err}
	}
	var groups []*models.Group
	for _, g := range all {
		if keep(g) {
			groups = append(groups, g)
		}
	}
	return groups, nil
}

// mutate loads a group, applies change and writes it back, then notifies hooks.
func (s *GroupService) mutate(ctx context.Context, groupID, op string, change func(*models.Group) error) (*models.Group, error) {
	g, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if err := change(g); err != nil {
		return nil, err
	}
	if err := s.groups.Update(ctx, g); err != nil {
		slog.Error("Group update failed", "op", op, "group_id", groupID, "error", err)
		return nil, storeErr(op, err)
	}

	s.metrics.GroupCommitted(op)
	slog.Info("Group updated", "op", op, "group_id", groupID, "members", len(g.Members))
	s.hooks.fire(ctx, CommitEvent{GroupID: groupID, Op: OpGroupChanged})
	return g, nil
}

func remove(ids []string, id string) []string {
	return slices.DeleteFunc(slices.Clone(ids), func(x string) bool { return x == id })
}

func addUnique(ids []string, id string) []string {
	if slices.Contains(ids, id) {
		return ids
	}
	return append(ids, id)
}
