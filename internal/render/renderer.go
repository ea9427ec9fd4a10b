package render

import "context"

type Renderer interface {
	RenderHome(ctx context.Context, page HomePage) ([]byte, error)
	RenderPost(ctx context.Context, page PostPage) ([]byte, error)
	RenderList(ctx context.Context, page ListPage) ([]byte, error)
	RenderNotFound(ctx context.Context, page NotFoundPage) ([]byte, error)
	RenderTagsPage(ctx context.Context, page TagsPage) ([]byte, error)
	RenderCategoriesPage(ctx context.Context, page CategoriesPage) ([]byte, error)
	// RenderCards renders post cards alone, for incremental loading.
	RenderCards(ctx context.Context, page CardsPage) ([]byte, error)
}
