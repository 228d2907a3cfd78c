package service

import (
	"context"
	"time"

	"github.com/d60-Lab/post-policy/internal/markup"
	"github.com/d60-Lab/post-policy/internal/repository"
)

// PostView is the serialized post plus the optional acceptance lists. The
// embedded PolicyView stays nil when the post has no bound group, which
// drops the policy_* fields from the payload entirely.
type PostView struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Raw       string    `json:"raw"`
	Cooked    string    `json:"cooked"`
	HasPolicy bool      `json:"has_policy"`
	UpdatedAt time.Time `json:"updated_at"`
	*PolicyView
}

// PostService is the host-platform glue: editing a post re-renders it,
// which is the event that drives policy reconciliation.
type PostService interface {
	Edit(ctx context.Context, postID, raw string) error
	View(ctx context.Context, postID string) (*PostView, error)
}

type postService struct {
	posts      repository.PostRepository
	reconciler *Reconciler
	projector  *Projector
}

func NewPostService(posts repository.PostRepository, reconciler *Reconciler, projector *Projector) PostService {
	return &postService{posts: posts, reconciler: reconciler, projector: projector}
}

// Edit stores the new raw content, cooks it and reconciles the policy
// state against whatever declaration the cooked content carries.
func (s *postService) Edit(ctx context.Context, postID, raw string) error {
	post, err := s.posts.Get(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil {
		return ErrPostNotFound
	}

	cooked, err := markup.Cook(raw)
	if err != nil {
		return err
	}
	post.Raw = raw
	post.Cooked = cooked
	if err := s.posts.Save(ctx, post); err != nil {
		return err
	}

	return s.reconciler.Reconcile(ctx, postID, markup.FindDeclaration(cooked))
}

func (s *postService) View(ctx context.Context, postID string) (*PostView, error) {
	post, err := s.posts.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrPostNotFound
	}

	view := &PostView{
		ID:        post.ID,
		AuthorID:  post.AuthorID,
		Raw:       post.Raw,
		Cooked:    post.Cooked,
		HasPolicy: post.HasPolicy,
		UpdatedAt: post.UpdatedAt,
	}
	if post.HasPolicy {
		pv, err := s.projector.Project(ctx, postID)
		if err != nil {
			return nil, err
		}
		view.PolicyView = pv
	}
	return view, nil
}
