package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"agora/internal/clock"
	"agora/internal/handlers"
	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/repositories"
	"agora/internal/services"
	"agora/internal/session"
)

// testEnv wires the full HTTP surface against in-memory repositories so
// tests can drive it with app.Test.
type testEnv struct {
	app      *fiber.App
	users    *repositories.MockUserRepository
	products *repositories.MockProductRepository
	posts    *repositories.MockPostRepository
}

func setupApp() *testEnv {
	posts := repositories.NewMockPostRepository()
	threads := repositories.NewMockThreadRepository(posts)
	users := repositories.NewMockUserRepository(posts)
	products := repositories.NewMockProductRepository()

	productService := services.NewProductService(products)
	cartService := services.NewCartService(products)
	authService := services.NewAuthService(users, "test_jwt_secret")
	forumService := services.NewForumService(threads, posts, clock.Real{}, 10*time.Minute, nil)
	accountService := services.NewAccountService(users, nil)

	authHandler := handlers.NewAuthHandler(authService)
	catalogHandler := handlers.NewCatalogHandler(productService)
	cartHandler := handlers.NewCartHandler(cartService, productService)
	forumHandler := handlers.NewForumHandler(forumService)
	adminHandler := handlers.NewAdminHandler(accountService)

	store := session.NewMemoryStore()

	app := fiber.New()
	apiV1 := app.Group("/api/v1",
		middleware.SessionContext(store),
		middleware.UserContext(authService),
	)
	authHandler.RegisterRoutes(apiV1)

	protected := apiV1.Group("", middleware.CSRFProtect())
	cartHandler.RegisterRoutes(protected)
	forumHandler.RegisterRoutes(protected)

	admin := protected.Group("/admin",
		middleware.AuthRequired(authService),
		middleware.AdminRequired(),
	)
	catalogHandler.RegisterRoutes(protected, admin)
	adminHandler.RegisterRoutes(admin)

	return &testEnv{app: app, users: users, products: products, posts: posts}
}

// client is one browser-like caller: it carries the session cookie, the
// CSRF token and, after login, the bearer token across requests.
type client struct {
	t      *testing.T
	env    *testEnv
	cookie string
	csrf   string
	token  string
}

func newClient(t *testing.T, env *testEnv) *client {
	c := &client{t: t, env: env}

	// Bootstrap the session and fetch the CSRF token.
	resp := c.do(http.MethodGet, "/api/v1/auth/session", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	decodeBody(t, resp, &body)
	c.csrf, _ = body["csrf_token"].(string)
	assert.NotEmpty(t, c.csrf)
	return c
}

func (c *client) do(method, path string, payload interface{}) *http.Response {
	c.t.Helper()

	var reader io.Reader
	if payload != nil {
		jsonBody, err := json.Marshal(payload)
		assert.NoError(c.t, err)
		reader = bytes.NewReader(jsonBody)
	}
	req := httptest.NewRequest(method, path, reader)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cookie != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: c.cookie})
	}
	if c.csrf != "" {
		req.Header.Set(middleware.CSRFHeader, c.csrf)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.env.app.Test(req, -1)
	assert.NoError(c.t, err)
	for _, ck := range resp.Cookies() {
		if ck.Name == middleware.SessionCookie {
			c.cookie = ck.Value
		}
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

// register creates an account through the API and logs it in.
func (c *client) register(username, email, password string) string {
	c.t.Helper()

	resp := c.do(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})
	assert.Equal(c.t, http.StatusCreated, resp.StatusCode)
	var regBody struct {
		User models.User `json:"user"`
	}
	decodeBody(c.t, resp, &regBody)
	assert.NotEmpty(c.t, regBody.User.ID)

	resp = c.do(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"ident":    username,
		"password": password,
	})
	assert.Equal(c.t, http.StatusOK, resp.StatusCode)
	var loginBody map[string]string
	decodeBody(c.t, resp, &loginBody)
	c.token = loginBody["token"]
	assert.NotEmpty(c.t, c.token)

	return regBody.User.ID
}

func seedCatalog(t *testing.T, env *testEnv, name string, price float64, stock int, active bool) string {
	t.Helper()
	p := &models.Product{Name: name, Price: price, Stock: stock, Active: active}
	assert.NoError(t, env.products.Create(p))
	return p.ID
}

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func TestCSRFProtection(t *testing.T) {
	env := setupApp()
	c := newClient(t, env)
	id := seedCatalog(t, env, "Widget", 10.0, 5, true)

	// A mutating request without the token is refused.
	noToken := *c
	noToken.csrf = ""
	resp := noToken.do(http.MethodPost, "/api/v1/cart/items", map[string]interface{}{
		"product_id": id, "quantity": 1,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// A wrong token fails the same way.
	badToken := *c
	badToken.csrf = "0000000000000000000000000000000000000000000000ff"
	resp = badToken.do(http.MethodPost, "/api/v1/cart/items", map[string]interface{}{
		"product_id": id, "quantity": 1,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Reads never require it.
	resp = noToken.do(http.MethodGet, "/api/v1/products/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// The real token passes.
	resp = c.do(http.MethodPost, "/api/v1/cart/items", map[string]interface{}{
		"product_id": id, "quantity": 1,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestCartFlow(t *testing.T) {
	env := setupApp()
	c := newClient(t, env)
	widgetID := seedCatalog(t, env, "Widget", 10.0, 5, true)
	gadgetID := seedCatalog(t, env, "Gadget", 2.75, 0, true)

	resp := c.do(http.MethodPost, "/api/v1/cart/items", map[string]interface{}{
		"product_id": widgetID, "quantity": 2,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = c.do(http.MethodPost, "/api/v1/cart/items", map[string]interface{}{
		"product_id": gadgetID, "quantity": 2,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// The cart sticks across requests via the session cookie.
	resp = c.do(http.MethodGet, "/api/v1/cart/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var totals models.CartTotals
	decodeBody(t, resp, &totals)
	assert.Len(t, totals.Lines, 2)
	assert.InDelta(t, 25.50, totals.Subtotal, 0.0001)

	// Requesting more than stock clamps and reports the shortfall.
	resp = c.do(http.MethodPost, "/api/v1/cart/items", map[string]interface{}{
		"product_id": widgetID, "quantity": 10,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var addBody map[string]interface{}
	decodeBody(t, resp, &addBody)
	assert.Equal(t, "partial_fulfillment", addBody["code"])

	// Asking again with the line full is a hard failure.
	resp = c.do(http.MethodPost, "/api/v1/cart/items", map[string]interface{}{
		"product_id": widgetID, "quantity": 1,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()

	resp = c.do(http.MethodDelete, "/api/v1/cart/items/"+widgetID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = c.do(http.MethodDelete, "/api/v1/cart/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = c.do(http.MethodGet, "/api/v1/cart/", nil)
	decodeBody(t, resp, &totals)
	assert.Empty(t, totals.Lines)
}

func TestForumFlow(t *testing.T) {
	env := setupApp()
	c := newClient(t, env)

	// Posting requires login.
	resp := c.do(http.MethodPost, "/api/v1/forum/threads", map[string]string{
		"title": "Hello", "content": "First!",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	c.register("alice", "alice@example.com", "password123")

	resp = c.do(http.MethodPost, "/api/v1/forum/threads", map[string]string{
		"title": "Hello", "content": "First!",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var threadBody struct {
		Thread models.Thread `json:"thread"`
	}
	decodeBody(t, resp, &threadBody)
	threadID := threadBody.Thread.ID
	assert.NotEmpty(t, threadID)

	resp = c.do(http.MethodPost, "/api/v1/forum/threads/"+threadID+"/posts", map[string]string{
		"content": "A reply",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var replyBody struct {
		Post models.Post `json:"post"`
	}
	decodeBody(t, resp, &replyBody)

	// Fresh posts are editable by their author.
	resp = c.do(http.MethodPut, "/api/v1/forum/posts/"+replyBody.Post.ID, map[string]string{
		"content": "A reply, clarified",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = c.do(http.MethodGet, "/api/v1/forum/threads/"+threadID+"/posts", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var views []services.PostView
	decodeBody(t, resp, &views)
	assert.Len(t, views, 2)
	assert.Equal(t, "A reply, clarified", views[1].Content)
	assert.NotNil(t, views[1].EditedAt)

	resp = c.do(http.MethodGet, "/api/v1/forum/threads", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var summaries []models.ThreadSummary
	decodeBody(t, resp, &summaries)
	assert.Len(t, summaries, 1)
	assert.Equal(t, 2, summaries[0].PostCount)
}

func TestAdminModeration(t *testing.T) {
	env := setupApp()

	member := newClient(t, env)
	memberID := member.register("bob", "bob@example.com", "password123")

	resp := member.do(http.MethodPost, "/api/v1/forum/threads", map[string]string{
		"title": "Opinions", "content": "Strong ones",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var threadBody struct {
		Thread models.Thread `json:"thread"`
	}
	decodeBody(t, resp, &threadBody)
	threadID := threadBody.Thread.ID

	posts, err := env.posts.ListByThread(threadID)
	assert.NoError(t, err)
	postID := posts[0].ID

	// Regular users cannot reach moderation routes.
	resp = member.do(http.MethodPut, "/api/v1/forum/posts/"+postID+"/visibility", map[string]bool{"hidden": true})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
	resp = member.do(http.MethodGet, "/api/v1/admin/users/", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	admin := newClient(t, env)
	adminID := admin.register("root", "root@example.com", "password123")
	assert.NoError(t, env.users.UpdateRole(adminID, models.RoleAdmin))

	resp = admin.do(http.MethodPut, "/api/v1/forum/posts/"+postID+"/visibility", map[string]bool{"hidden": true})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// The member now sees the placeholder, the admin the real content.
	resp = member.do(http.MethodGet, "/api/v1/forum/threads/"+threadID+"/posts", nil)
	var memberViews []services.PostView
	decodeBody(t, resp, &memberViews)
	assert.Equal(t, services.HiddenContentPlaceholder, memberViews[0].Content)

	resp = admin.do(http.MethodGet, "/api/v1/forum/threads/"+threadID+"/posts", nil)
	var adminViews []services.PostView
	decodeBody(t, resp, &adminViews)
	assert.Equal(t, "Strong ones", adminViews[0].Content)
	assert.True(t, adminViews[0].Hidden)

	// Self-targeting moderation is blocked, other targets work.
	resp = admin.do(http.MethodDelete, "/api/v1/admin/users/"+adminID, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = admin.do(http.MethodPost, "/api/v1/admin/users/"+memberID+"/promote", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	resp = admin.do(http.MethodPost, "/api/v1/admin/users/"+memberID+"/revoke", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = admin.do(http.MethodDelete, "/api/v1/admin/users/"+memberID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// The member's posts went with the account.
	remaining, err := env.posts.ListByThread(threadID)
	assert.NoError(t, err)
	assert.Empty(t, remaining)

	resp = admin.do(http.MethodDelete, "/api/v1/forum/threads/"+threadID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestAdminCatalogRoutes(t *testing.T) {
	env := setupApp()

	member := newClient(t, env)
	member.register("bob", "bob@example.com", "password123")

	resp := member.do(http.MethodPost, "/api/v1/admin/products/", map[string]interface{}{
		"name": "Sneaky", "price": 1.0, "stock": 1,
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	admin := newClient(t, env)
	adminID := admin.register("root", "root@example.com", "password123")
	assert.NoError(t, env.users.UpdateRole(adminID, models.RoleAdmin))

	resp = admin.do(http.MethodPost, "/api/v1/admin/products/", map[string]interface{}{
		"name": "Widget", "price": 10.0, "stock": 5, "active": false,
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var created models.Product
	decodeBody(t, resp, &created)
	assert.NotEmpty(t, created.ID)

	// Inactive products are invisible to regular viewers.
	resp = member.do(http.MethodGet, "/api/v1/products/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
	resp = member.do(http.MethodGet, "/api/v1/products/", nil)
	var visible []models.Product
	decodeBody(t, resp, &visible)
	assert.Empty(t, visible)

	// Admins see them.
	resp = admin.do(http.MethodGet, "/api/v1/products/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	created.Active = true
	resp = admin.do(http.MethodPut, "/api/v1/admin/products/"+created.ID, created)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = member.do(http.MethodGet, "/api/v1/products/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = admin.do(http.MethodDelete, "/api/v1/admin/products/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = admin.do(http.MethodGet, "/api/v1/products/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

// Identifiers taken from route params are retained by repositories and
// carts long after the request buffer is reused. Later traffic must not
// corrupt them.
func TestStoredIdentifiersSurviveLaterRequests(t *testing.T) {
	env := setupApp()

	admin := newClient(t, env)
	adminID := admin.register("root", "root@example.com", "password123")
	assert.NoError(t, env.users.UpdateRole(adminID, models.RoleAdmin))

	resp := admin.do(http.MethodPost, "/api/v1/admin/products/", map[string]interface{}{
		"name": "Widget", "price": 10.0, "stock": 5, "active": true,
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var created models.Product
	decodeBody(t, resp, &created)
	productID := created.ID

	created.Price = 12.0
	resp = admin.do(http.MethodPut, "/api/v1/admin/products/"+productID, created)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = admin.do(http.MethodPut, "/api/v1/cart/admin/items/"+productID, map[string]int{"quantity": 2})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = admin.do(http.MethodPost, "/api/v1/forum/threads", map[string]string{
		"title": "Announcements", "content": "Opening post",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var threadBody struct {
		Thread models.Thread `json:"thread"`
	}
	decodeBody(t, resp, &threadBody)
	threadID := threadBody.Thread.ID

	resp = admin.do(http.MethodPost, "/api/v1/forum/threads/"+threadID+"/posts", map[string]string{
		"content": "A reply",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Churn the request buffers with unrelated traffic carrying longer
	// paths than the IDs above.
	for i := 0; i < 5; i++ {
		resp = admin.do(http.MethodGet, "/api/v1/products/not-a-real-product-id-but-quite-long-indeed", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		resp.Body.Close()
	}

	// The updated product is still reachable by its original ID.
	resp = admin.do(http.MethodGet, "/api/v1/products/"+productID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var fetched models.Product
	decodeBody(t, resp, &fetched)
	assert.Equal(t, productID, fetched.ID)
	assert.InDelta(t, 12.0, fetched.Price, 0.0001)

	// The cart line still keys on the real product ID.
	resp = admin.do(http.MethodGet, "/api/v1/cart/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var totals models.CartTotals
	decodeBody(t, resp, &totals)
	assert.Len(t, totals.Lines, 1)
	assert.Equal(t, productID, totals.Lines[0].Product.ID)

	// The reply still belongs to its thread.
	resp = admin.do(http.MethodGet, "/api/v1/forum/threads/"+threadID+"/posts", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var views []services.PostView
	decodeBody(t, resp, &views)
	assert.Len(t, views, 2)
	assert.Equal(t, threadID, views[1].ThreadID)
}

func TestCartSkipsDeactivatedLines(t *testing.T) {
	env := setupApp()
	c := newClient(t, env)
	id := seedCatalog(t, env, "Widget", 10.0, 5, true)

	resp := c.do(http.MethodPost, "/api/v1/cart/items", map[string]interface{}{
		"product_id": id, "quantity": 2,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = c.do(http.MethodGet, "/api/v1/cart/", nil)
	var totals models.CartTotals
	decodeBody(t, resp, &totals)
	assert.InDelta(t, 20.0, totals.Subtotal, 0.0001)

	// Deactivate the product after it entered the cart; the line becomes
	// unresolvable and disappears from the priced view.
	p, err := env.products.GetByID(id)
	assert.NoError(t, err)
	p.Active = false
	assert.NoError(t, env.products.Update(p))

	resp = c.do(http.MethodGet, "/api/v1/cart/", nil)
	decodeBody(t, resp, &totals)
	assert.Empty(t, totals.Lines)
	assert.Zero(t, totals.Subtotal)
}

func TestLogout(t *testing.T) {
	env := setupApp()
	c := newClient(t, env)
	id := seedCatalog(t, env, "Widget", 10.0, 5, true)

	c.register("alice", "alice@example.com", "password123")
	resp := c.do(http.MethodPost, "/api/v1/cart/items", map[string]interface{}{
		"product_id": id, "quantity": 1,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	var sessBody map[string]interface{}
	resp = c.do(http.MethodGet, "/api/v1/auth/session", nil)
	decodeBody(t, resp, &sessBody)
	assert.Equal(t, true, sessBody["authenticated"])
	assert.Equal(t, float64(1), sessBody["cart_count"])

	resp = c.do(http.MethodPost, "/api/v1/auth/logout", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// The session survives but carries no user and an empty cart.
	c.token = ""
	resp = c.do(http.MethodGet, "/api/v1/auth/session", nil)
	decodeBody(t, resp, &sessBody)
	assert.Equal(t, false, sessBody["authenticated"])
	assert.Equal(t, float64(0), sessBody["cart_count"])
}

func TestAdminCartOverrides(t *testing.T) {
	env := setupApp()
	id := seedCatalog(t, env, "Scarce Widget", 9.99, 3, true)

	member := newClient(t, env)
	member.register("bob", "bob@example.com", "password123")
	resp := member.do(http.MethodPost, "/api/v1/cart/admin/items", map[string]interface{}{
		"product_id": id, "quantity": 1,
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	admin := newClient(t, env)
	adminID := admin.register("root", "root@example.com", "password123")
	assert.NoError(t, env.users.UpdateRole(adminID, models.RoleAdmin))

	resp = admin.do(http.MethodPost, "/api/v1/cart/admin/items", map[string]interface{}{
		"product_id": id, "quantity": 2,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Overrides clamp against stock like everything else.
	resp = admin.do(http.MethodPut, "/api/v1/cart/admin/items/"+id, map[string]int{"quantity": 10})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var setBody map[string]interface{}
	decodeBody(t, resp, &setBody)
	assert.Equal(t, "stock_adjusted", setBody["code"])
}
