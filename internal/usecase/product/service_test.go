package product_test

import (
	"context"
	"strings"
	"testing"

	domain "github.com/savolekovic/cijene-me-backend-sub000/internal/domain/product"
	"github.com/savolekovic/cijene-me-backend-sub000/internal/usecase/product"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProductRepo struct {
	products map[string]*domain.Product
}

func newStubProductRepo() *stubProductRepo {
	return &stubProductRepo{products: make(map[string]*domain.Product)}
}

func (r *stubProductRepo) Create(_ context.Context, p *domain.Product) error {
	clone := *p
	r.products[p.ID] = &clone
	return nil
}

func (r *stubProductRepo) GetByID(_ context.Context, id string) (*domain.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *stubProductRepo) List(_ context.Context, filter domain.Filter) (*domain.Page, error) {
	items := []*domain.WithCategory{}
	for _, p := range r.products {
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Search)) {
			continue
		}
		if filter.CategoryID != "" && p.CategoryID != filter.CategoryID {
			continue
		}
		items = append(items, &domain.WithCategory{Product: *p, CategoryName: "cat"})
	}
	return &domain.Page{Items: items, Total: len(items), Page: filter.Page, PerPage: filter.PerPage}, nil
}

func (r *stubProductRepo) Update(_ context.Context, p *domain.Product) error {
	if _, ok := r.products[p.ID]; !ok {
		return domain.ErrNotFound
	}
	clone := *p
	r.products[p.ID] = &clone
	return nil
}

func (r *stubProductRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.products[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.products, id)
	return nil
}

type stubCategoryRepo struct {
	categories map[string]*domain.Category
}

func newStubCategoryRepo(ids ...string) *stubCategoryRepo {
	r := &stubCategoryRepo{categories: make(map[string]*domain.Category)}
	for _, id := range ids {
		r.categories[id] = &domain.Category{ID: id, Name: "category " + id}
	}
	return r
}

func (r *stubCategoryRepo) Create(_ context.Context, c *domain.Category) error {
	for _, existing := range r.categories {
		if existing.Name == c.Name {
			return domain.ErrDuplicateCategory
		}
	}
	clone := *c
	r.categories[c.ID] = &clone
	return nil
}

func (r *stubCategoryRepo) GetByID(_ context.Context, id string) (*domain.Category, error) {
	c, ok := r.categories[id]
	if !ok {
		return nil, domain.ErrCategoryNotFound
	}
	clone := *c
	return &clone, nil
}

func (r *stubCategoryRepo) List(_ context.Context) ([]*domain.Category, error) {
	var out []*domain.Category
	for _, c := range r.categories {
		clone := *c
		out = append(out, &clone)
	}
	return out, nil
}

func (r *stubCategoryRepo) Update(_ context.Context, c *domain.Category) error {
	if _, ok := r.categories[c.ID]; !ok {
		return domain.ErrCategoryNotFound
	}
	clone := *c
	r.categories[c.ID] = &clone
	return nil
}

func (r *stubCategoryRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.categories[id]; !ok {
		return domain.ErrCategoryNotFound
	}
	delete(r.categories, id)
	return nil
}

func TestCreate_ValidatesCategory(t *testing.T) {
	svc := product.NewService(newStubProductRepo(), newStubCategoryRepo("c1"))
	ctx := context.Background()

	created, err := svc.Create(ctx, product.CreateInput{Name: "Milk 1L", CategoryID: "c1"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "c1", created.CategoryID)

	_, err = svc.Create(ctx, product.CreateInput{Name: "Bread", CategoryID: "missing"})
	assert.ErrorIs(t, err, domain.ErrCategoryNotFound)

	_, err = svc.Create(ctx, product.CreateInput{Name: "", CategoryID: "c1"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestList_ClampsPaging(t *testing.T) {
	repo := newStubProductRepo()
	svc := product.NewService(repo, newStubCategoryRepo("c1"))
	ctx := context.Background()

	page, err := svc.List(ctx, domain.Filter{Page: 0, PerPage: 0})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PerPage)

	page, err = svc.List(ctx, domain.Filter{Page: 2, PerPage: 1000})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 100, page.PerPage)
}

func TestUpdate_ChecksNewCategory(t *testing.T) {
	svc := product.NewService(newStubProductRepo(), newStubCategoryRepo("c1", "c2"))
	ctx := context.Background()

	created, err := svc.Create(ctx, product.CreateInput{Name: "Milk 1L", CategoryID: "c1"})
	require.NoError(t, err)

	moved := "c2"
	updated, err := svc.Update(ctx, created.ID, product.UpdateInput{CategoryID: &moved})
	require.NoError(t, err)
	assert.Equal(t, "c2", updated.CategoryID)

	missing := "nope"
	_, err = svc.Update(ctx, created.ID, product.UpdateInput{CategoryID: &missing})
	assert.ErrorIs(t, err, domain.ErrCategoryNotFound)
}

func TestCategoryLifecycle(t *testing.T) {
	svc := product.NewService(newStubProductRepo(), newStubCategoryRepo())
	ctx := context.Background()

	created, err := svc.CreateCategory(ctx, "  Dairy ")
	require.NoError(t, err)
	assert.Equal(t, "Dairy", created.Name)

	_, err = svc.CreateCategory(ctx, "Dairy")
	assert.ErrorIs(t, err, domain.ErrDuplicateCategory)

	renamed, err := svc.UpdateCategory(ctx, created.ID, "Dairy & Eggs")
	require.NoError(t, err)
	assert.Equal(t, "Dairy & Eggs", renamed.Name)

	require.NoError(t, svc.DeleteCategory(ctx, created.ID))
	_, err = svc.GetCategory(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrCategoryNotFound)
}
