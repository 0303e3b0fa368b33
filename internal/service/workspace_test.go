package service_test

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/hemline/internal/model"
	"github.com/xxxsen/hemline/internal/notify"
	appErr "github.com/xxxsen/hemline/internal/pkg/errors"
	"github.com/xxxsen/hemline/internal/repo"
	"github.com/xxxsen/hemline/internal/service"
)

func ptr[T any](v T) *T {
	return &v
}

func newClient(first, last string) service.ClientInput {
	return service.ClientInput{
		FirstName: ptr(first),
		LastName:  ptr(last),
		Gender:    ptr("female"),
	}
}

func pngImage(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func (h *harness) upload(t *testing.T, userID, name string) *model.GalleryImage {
	t.Helper()
	data := pngImage(t, 3, 2)
	img, err := h.gallery.Upload(context.Background(), userID, name, "", bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	return img
}

func TestClientCreateStoresCentimeters(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	user := h.login(t, "a@example.com").User

	in := newClient("Ada", "Obi")
	in.MeasurementUnit = ptr("Inches")
	in.Email = ptr(" Ada@Example.com ")
	in.Measurements = map[string]*float64{"waist": ptr(30.0), "inseam": ptr(32.5)}
	in.Orders = []service.OrderInput{{Item: ptr("Kaftan")}, {Item: ptr("Agbada"), Quantity: ptr(2)}}

	detail, err := h.clients.Create(ctx, user.ID, in)
	require.NoError(t, err)
	require.Equal(t, "Female", detail.Gender)
	require.Equal(t, model.UnitInches, detail.MeasurementUnit)
	require.Equal(t, "ada@example.com", detail.Email)
	require.Equal(t, 30.0, detail.Measurements["waist"])
	require.Equal(t, 32.5, detail.Measurements["inseam"])
	require.Equal(t, 2, detail.TotalOrders)
	require.Equal(t, 2, detail.PendingOrders)
	require.Zero(t, detail.CompletedOrders)
	require.Equal(t, "Ada Obi", detail.Orders[0].ClientName)

	stored, err := repo.NewClientRepo(h.conn).GetByID(ctx, user.ID, detail.ID)
	require.NoError(t, err)
	require.InDelta(t, 76.2, stored.Measurements["waist"], 1e-9)
}

func TestClientCreateRejectsBadInput(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	user := h.login(t, "a@example.com").User

	cases := map[string]func(in *service.ClientInput){
		"short name":   func(in *service.ClientInput) { in.FirstName = ptr("A") },
		"gender":       func(in *service.ClientInput) { in.Gender = ptr("other") },
		"unit":         func(in *service.ClientInput) { in.MeasurementUnit = ptr("yards") },
		"email":        func(in *service.ClientInput) { in.Email = ptr("nope") },
		"phone":        func(in *service.ClientInput) { in.PhoneNumber = ptr(strings.Repeat("1", 21)) },
		"unknown":      func(in *service.ClientInput) { in.Measurements = map[string]*float64{"wingspan": ptr(1.0)} },
		"non-positive": func(in *service.ClientInput) { in.Measurements = map[string]*float64{"waist": ptr(0.0)} },
		"missing":      func(in *service.ClientInput) { in.Gender = nil },
	}
	for name, mutate := range cases {
		in := newClient("Ada", "Obi")
		mutate(&in)
		_, err := h.clients.Create(ctx, user.ID, in)
		require.ErrorIs(t, err, appErr.ErrInvalid, name)
	}
}

func TestClientCreateRollsBackWithBadOrder(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	user := h.login(t, "a@example.com").User

	in := newClient("Ada", "Obi")
	in.Orders = []service.OrderInput{{Item: ptr("Kaftan")}, {Item: ptr("Agbada"), Quantity: ptr(0)}}
	_, err := h.clients.Create(ctx, user.ID, in)
	require.ErrorIs(t, err, appErr.ErrInvalid)

	page, err := h.clients.List(ctx, user.ID, service.ClientQuery{})
	require.NoError(t, err)
	require.Zero(t, page.Pagination.Total)
	orders, err := h.orders.List(ctx, user.ID, service.OrderQuery{})
	require.NoError(t, err)
	require.Empty(t, orders.Orders)
}

func TestClientUpdateSwitchesDisplayUnit(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	user := h.login(t, "a@example.com").User

	in := newClient("Ada", "Obi")
	in.Measurements = map[string]*float64{"waist": ptr(76.2), "hip_full": ptr(100.0)}
	created, err := h.clients.Create(ctx, user.ID, in)
	require.NoError(t, err)
	require.Equal(t, model.UnitCentimeters, created.MeasurementUnit)

	updated, err := h.clients.Update(ctx, user.ID, created.ID, service.ClientInput{MeasurementUnit: ptr(model.UnitInches)})
	require.NoError(t, err)
	require.Equal(t, 30.0, updated.Measurements["waist"])
	require.Equal(t, 39.37, updated.Measurements["hip_full"])

	updated, err = h.clients.Update(ctx, user.ID, created.ID, service.ClientInput{
		Measurements: map[string]*float64{"hip_full": nil, "neck_circumference": ptr(15.0)},
	})
	require.NoError(t, err)
	require.NotContains(t, updated.Measurements, "hip_full")
	require.Equal(t, 15.0, updated.Measurements["neck_circumference"])

	_, err = h.clients.Update(ctx, "someone-else", created.ID, service.ClientInput{FirstName: ptr("Bola")})
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestClientBulkTrash(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	owner := h.login(t, "a@example.com").User
	other := h.login(t, "b@example.com").User

	first, err := h.clients.Create(ctx, owner.ID, newClient("Ada", "Obi"))
	require.NoError(t, err)
	second, err := h.clients.Create(ctx, owner.ID, newClient("Bisi", "Ade"))
	require.NoError(t, err)
	foreign, err := h.clients.Create(ctx, other.ID, newClient("Chidi", "Eze"))
	require.NoError(t, err)

	_, err = h.clients.BulkTrash(ctx, owner.ID, []string{first.ID, "not-a-uuid"})
	require.ErrorIs(t, err, appErr.ErrInvalid)
	_, err = h.clients.BulkTrash(ctx, owner.ID, nil)
	require.ErrorIs(t, err, appErr.ErrInvalid)

	n, err := h.clients.BulkTrash(ctx, owner.ID, []string{first.ID, foreign.ID})
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	trashed, err := h.clients.List(ctx, owner.ID, service.ClientQuery{InTrash: ptr(true)})
	require.NoError(t, err)
	require.Len(t, trashed.Clients, 1)
	require.Equal(t, first.ID, trashed.Clients[0].ID)

	active, err := h.clients.List(ctx, owner.ID, service.ClientQuery{InTrash: ptr(false)})
	require.NoError(t, err)
	require.Len(t, active.Clients, 1)
	require.Equal(t, second.ID, active.Clients[0].ID)

	kept, err := h.clients.Get(ctx, other.ID, foreign.ID)
	require.NoError(t, err)
	require.False(t, kept.InTrash)
}

func TestClientListSearchAndSort(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	user := h.login(t, "a@example.com").User
	for _, name := range [][2]string{{"Zainab", "Bello"}, {"Ada", "Obi"}, {"Musa", "Adamu"}} {
		_, err := h.clients.Create(ctx, user.ID, newClient(name[0], name[1]))
		require.NoError(t, err)
	}

	page, err := h.clients.List(ctx, user.ID, service.ClientQuery{SortBy: repo.ClientSortZA, Page: service.PageRequest{PerPage: 2}})
	require.NoError(t, err)
	require.Equal(t, 3, page.Pagination.Total)
	require.Equal(t, 2, page.Pagination.TotalPages)
	require.True(t, page.Pagination.HasMore)
	require.Equal(t, "Zainab", page.Clients[0].FirstName)
	require.Equal(t, "Musa", page.Clients[1].FirstName)

	page, err = h.clients.List(ctx, user.ID, service.ClientQuery{Search: "ADA"})
	require.NoError(t, err)
	require.Len(t, page.Clients, 2)
	require.Equal(t, "Ada", page.Clients[0].FirstName)
	require.Equal(t, "Musa", page.Clients[1].FirstName)
}

func TestOrderStatusFilters(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	user := h.login(t, "a@example.com").User
	client, err := h.clients.Create(ctx, user.ID, newClient("Ada", "Obi"))
	require.NoError(t, err)

	now := h.clock.Now().Unix()
	day := int64(24 * 60 * 60)
	created, err := h.orders.CreateForClient(ctx, user.ID, client.ID, []service.OrderInput{
		{Item: ptr("late"), DueDate: ptr(now - day)},
		{Item: ptr("soon"), DueDate: ptr(now + day)},
		{Item: ptr("finished"), DueDate: ptr(now - 2*day), IsDone: ptr(true)},
		{Item: ptr("someday")},
	})
	require.NoError(t, err)
	require.Len(t, created, 4)

	items := func(status string) []string {
		page, err := h.orders.List(ctx, user.ID, service.OrderQuery{Status: status})
		require.NoError(t, err)
		out := make([]string, 0, len(page.Orders))
		for _, o := range page.Orders {
			out = append(out, o.Item)
		}
		return out
	}
	require.Equal(t, []string{"late"}, items(repo.OrderStatusOverdue))
	require.Equal(t, []string{"soon"}, items(repo.OrderStatusUpcoming))
	require.Equal(t, []string{"finished"}, items(repo.OrderStatusCompleted))
	require.Equal(t, []string{"late", "soon", "someday"}, items(repo.OrderStatusPending))
	require.Equal(t, []string{"finished", "late", "soon", "someday"}, items(""))

	_, err = h.orders.List(ctx, user.ID, service.OrderQuery{Status: "lost"})
	require.ErrorIs(t, err, appErr.ErrInvalid)

	late, err := h.orders.Get(ctx, user.ID, created[0].ID)
	require.NoError(t, err)
	require.True(t, late.Overdue)

	page, err := h.orders.List(ctx, user.ID, service.OrderQuery{Search: "obi", SortBy: repo.OrderSortAZ})
	require.NoError(t, err)
	require.Len(t, page.Orders, 4)
	require.Equal(t, "finished", page.Orders[0].Item)

	h.clock.Advance(2 * 24 * time.Hour)
	require.Equal(t, []string{"late", "soon"}, items(repo.OrderStatusOverdue))
}

func TestOrderCreateChecksClientOwner(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	owner := h.login(t, "a@example.com").User
	other := h.login(t, "b@example.com").User
	mine, err := h.clients.Create(ctx, owner.ID, newClient("Ada", "Obi"))
	require.NoError(t, err)
	theirs, err := h.clients.Create(ctx, other.ID, newClient("Chidi", "Eze"))
	require.NoError(t, err)

	_, err = h.orders.Create(ctx, owner.ID, []service.OrderInput{
		{ClientID: ptr(mine.ID), Item: ptr("Kaftan")},
		{ClientID: ptr(theirs.ID), Item: ptr("Agbada")},
	})
	require.ErrorIs(t, err, appErr.ErrNotFound)
	_, err = h.orders.Create(ctx, owner.ID, []service.OrderInput{{Item: ptr("Kaftan")}})
	require.ErrorIs(t, err, appErr.ErrInvalid)

	page, err := h.orders.List(ctx, owner.ID, service.OrderQuery{})
	require.NoError(t, err)
	require.Empty(t, page.Orders)
}

func TestOrderLifecycle(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	user := h.login(t, "a@example.com").User
	client, err := h.clients.Create(ctx, user.ID, newClient("Ada", "Obi"))
	require.NoError(t, err)
	orders, err := h.orders.Create(ctx, user.ID, []service.OrderInput{
		{ClientID: ptr(client.ID), Item: ptr("Kaftan"), DueDate: ptr(h.clock.Now().Unix() + 60)},
		{ClientID: ptr(client.ID), Item: ptr("Agbada")},
	})
	require.NoError(t, err)

	done, err := h.orders.MarkDone(ctx, user.ID, orders[0].ID)
	require.NoError(t, err)
	require.True(t, done.IsDone)
	pending, err := h.orders.MarkPending(ctx, user.ID, orders[0].ID)
	require.NoError(t, err)
	require.False(t, pending.IsDone)

	updated, err := h.orders.Update(ctx, user.ID, orders[0].ID, service.OrderInput{Notes: ptr("lining"), DueDate: ptr(int64(0))})
	require.NoError(t, err)
	require.Equal(t, "lining", updated.Notes)
	require.Nil(t, updated.DueDate)

	detail, err := h.clients.Get(ctx, user.ID, client.ID)
	require.NoError(t, err)
	require.Equal(t, 2, detail.TotalOrders)

	_, err = h.orders.BulkDelete(ctx, user.ID, []string{"bad"})
	require.ErrorIs(t, err, appErr.ErrInvalid)
	n, err := h.orders.BulkDelete(ctx, user.ID, []string{orders[1].ID})
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	require.NoError(t, h.orders.Delete(ctx, user.ID, orders[0].ID))
	require.ErrorIs(t, h.orders.Delete(ctx, user.ID, orders[0].ID), appErr.ErrNotFound)
}

func TestGalleryUploadAndDelete(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	owner := h.login(t, "a@example.com").User
	other := h.login(t, "b@example.com").User

	img := h.upload(t, owner.ID, "look one")
	require.Len(t, img.ID, 16)
	require.Equal(t, "image/png", img.ContentType)
	require.Equal(t, 3, img.Width)
	require.Equal(t, 2, img.Height)
	require.True(t, strings.HasPrefix(img.URL, "https://api.example.com/api/v1/files/gallery_"))
	rc, err := h.store.Open(ctx, img.StorageKey)
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	_, err = h.gallery.Upload(ctx, owner.ID, "text", "", bytes.NewReader([]byte("hello")), 5)
	require.ErrorIs(t, err, service.ErrUnsupportedImage)
	_, err = h.gallery.Upload(ctx, owner.ID, "", "", bytes.NewReader(pngHeader), int64(len(pngHeader)))
	require.ErrorIs(t, err, appErr.ErrInvalid)

	updated, err := h.gallery.Update(ctx, owner.ID, img.ID, service.GalleryUpdate{Description: ptr("bridal")})
	require.NoError(t, err)
	require.Equal(t, "bridal", updated.Description)
	require.Equal(t, "look one", updated.FileName)

	theirs := h.upload(t, other.ID, "theirs")
	_, err = h.gallery.Delete(ctx, owner.ID, []string{img.ID, theirs.ID})
	require.ErrorIs(t, err, appErr.ErrNotFound)
	_, err = h.gallery.Get(ctx, owner.ID, img.ID)
	require.NoError(t, err)

	n, err := h.gallery.Delete(ctx, owner.ID, []string{img.ID})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	_, err = h.store.Open(ctx, img.StorageKey)
	require.ErrorIs(t, err, appErr.ErrNotFound)
	_, err = h.gallery.Get(ctx, other.ID, theirs.ID)
	require.NoError(t, err)
}

func TestGalleryDeleteDetachesFromFolders(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	user := h.login(t, "a@example.com").User
	cover := h.upload(t, user.ID, "cover")
	kept := h.upload(t, user.ID, "kept")

	folder, err := h.folders.Create(ctx, user.ID, service.FolderInput{Name: ptr("Bridal"), ImageIDs: []string{cover.ID, kept.ID}})
	require.NoError(t, err)
	_, err = h.folders.SetCover(ctx, user.ID, folder.ID, cover.ID)
	require.NoError(t, err)

	_, err = h.gallery.Delete(ctx, user.ID, []string{cover.ID})
	require.NoError(t, err)

	detail, err := h.folders.Get(ctx, user.ID, folder.ID, service.PageRequest{})
	require.NoError(t, err)
	require.Nil(t, detail.CoverImageID)
	require.Equal(t, 1, detail.ImageCount)
	require.Equal(t, []string{kept.ID}, detail.ImageIDs)
	require.Len(t, detail.Images, 1)
}

func TestFolderCoverRules(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	user := h.login(t, "a@example.com").User
	other := h.login(t, "b@example.com").User
	first := h.upload(t, user.ID, "first")
	second := h.upload(t, user.ID, "second")
	outside := h.upload(t, user.ID, "outside")
	foreign := h.upload(t, other.ID, "foreign")

	folder, err := h.folders.Create(ctx, user.ID, service.FolderInput{Name: ptr("Ankara"), ImageIDs: []string{first.ID, second.ID}})
	require.NoError(t, err)
	require.GreaterOrEqual(t, folder.Color, 1)
	require.LessOrEqual(t, folder.Color, 9)
	require.Equal(t, 2, folder.ImageCount)

	_, err = h.folders.SetCover(ctx, user.ID, folder.ID, outside.ID)
	require.ErrorIs(t, err, appErr.ErrInvalid)
	_, err = h.folders.SetCover(ctx, user.ID, folder.ID, foreign.ID)
	require.ErrorIs(t, err, appErr.ErrNotFound)

	folder, err = h.folders.SetCover(ctx, user.ID, folder.ID, first.ID)
	require.NoError(t, err)
	require.Equal(t, first.ID, *folder.CoverImageID)

	folder, err = h.folders.RemoveImages(ctx, user.ID, folder.ID, []string{second.ID})
	require.NoError(t, err)
	require.Equal(t, first.ID, *folder.CoverImageID)

	folder, err = h.folders.RemoveImages(ctx, user.ID, folder.ID, []string{first.ID})
	require.NoError(t, err)
	require.Nil(t, folder.CoverImageID)
	require.Empty(t, folder.ImageIDs)

	_, err = h.folders.RemoveImages(ctx, user.ID, folder.ID, nil)
	require.ErrorIs(t, err, appErr.ErrInvalid)
	_, err = h.folders.Update(ctx, user.ID, folder.ID, service.FolderInput{Color: ptr(10)})
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestFolderNamesAreUniquePerUser(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	user := h.login(t, "a@example.com").User
	other := h.login(t, "b@example.com").User

	_, err := h.folders.Create(ctx, user.ID, service.FolderInput{Name: ptr("Bridal")})
	require.NoError(t, err)
	_, err = h.folders.Create(ctx, user.ID, service.FolderInput{Name: ptr(" Bridal ")})
	require.ErrorIs(t, err, appErr.ErrConflict)
	_, err = h.folders.Create(ctx, other.ID, service.FolderInput{Name: ptr("Bridal")})
	require.NoError(t, err)

	second, err := h.folders.Create(ctx, user.ID, service.FolderInput{Name: ptr("Casual")})
	require.NoError(t, err)
	_, err = h.folders.Update(ctx, user.ID, second.ID, service.FolderInput{Name: ptr("Bridal")})
	require.ErrorIs(t, err, appErr.ErrConflict)
}

func TestFolderAddImagesToSeveralFolders(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	user := h.login(t, "a@example.com").User
	other := h.login(t, "b@example.com").User
	img := h.upload(t, user.ID, "look")
	foreign := h.upload(t, other.ID, "foreign")
	first, err := h.folders.Create(ctx, user.ID, service.FolderInput{Name: ptr("One")})
	require.NoError(t, err)
	second, err := h.folders.Create(ctx, user.ID, service.FolderInput{Name: ptr("Two")})
	require.NoError(t, err)
	theirs, err := h.folders.Create(ctx, other.ID, service.FolderInput{Name: ptr("Theirs")})
	require.NoError(t, err)

	_, err = h.folders.AddImages(ctx, user.ID, first.ID, []string{img.ID, foreign.ID}, nil)
	require.ErrorIs(t, err, appErr.ErrNotFound)
	_, err = h.folders.AddImages(ctx, user.ID, first.ID, []string{img.ID}, []string{first.ID, theirs.ID})
	require.ErrorIs(t, err, appErr.ErrNotFound)

	folder, err := h.folders.AddImages(ctx, user.ID, first.ID, []string{img.ID}, []string{first.ID, second.ID})
	require.NoError(t, err)
	require.Equal(t, []string{img.ID}, folder.ImageIDs)
	folder, err = h.folders.AddImages(ctx, user.ID, first.ID, []string{img.ID}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, folder.ImageCount)

	got, err := h.gallery.Get(ctx, user.ID, img.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{first.ID, second.ID}, got.FolderIDs)
}

func TestFolderShareAndPublicRead(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	user := h.login(t, "a@example.com").User
	_, err := h.profiles.UpdateProfile(ctx, user.ID, service.ProfileUpdate{
		FirstName:    ptr("Bola"),
		LastName:     ptr("Ade"),
		BusinessName: ptr("Bola Stitches"),
	})
	require.NoError(t, err)
	img := h.upload(t, user.ID, "look")
	folder, err := h.folders.Create(ctx, user.ID, service.FolderInput{Name: ptr("Bridal"), ImageIDs: []string{img.ID}})
	require.NoError(t, err)
	require.False(t, folder.IsPublic)
	require.Empty(t, folder.PublicURL)

	_, err = h.folders.Share(ctx, user.ID, folder.ID, []string{"not-an-email"})
	require.ErrorIs(t, err, appErr.ErrInvalid)

	shared, err := h.folders.Share(ctx, user.ID, folder.ID, []string{"Friend@Example.com"})
	require.NoError(t, err)
	require.True(t, shared.IsPublic)
	require.NotNil(t, shared.PublicID)
	require.Equal(t, "https://app.example.com/folders/"+*shared.PublicID, shared.PublicURL)

	h.notifier.Wait()
	notices := h.sender.ByTag(notify.KindFolderShareNotice)
	require.Len(t, notices, 1)
	require.Equal(t, "friend@example.com", notices[0].To)
	require.Contains(t, notices[0].Subject, "Bola Ade")
	require.Contains(t, notices[0].Text, "Bola Stitches")
	require.Contains(t, notices[0].Text, shared.PublicURL)
	require.Contains(t, notices[0].Text, "(1 images)")

	public, err := h.folders.PublicFolder(ctx, *shared.PublicID, service.PageRequest{})
	require.NoError(t, err)
	require.Equal(t, folder.ID, public.Folder.ID)
	require.Equal(t, "Bola Ade", public.Owner.FullName)
	require.Equal(t, "Bola Stitches", public.Owner.BusinessName)
	require.Len(t, public.Images, 1)
	require.Equal(t, 1, public.Pagination.Total)

	again, err := h.folders.Share(ctx, user.ID, folder.ID, nil)
	require.NoError(t, err)
	require.Equal(t, *shared.PublicID, *again.PublicID)

	images, err := h.folders.PublicImages(ctx, *shared.PublicID, service.PageRequest{Page: 2})
	require.NoError(t, err)
	require.Empty(t, images.Images)
	require.Equal(t, 2, images.Pagination.CurrentPage)
	require.False(t, images.Pagination.HasMore)

	unshared, err := h.folders.Unshare(ctx, user.ID, folder.ID)
	require.NoError(t, err)
	require.False(t, unshared.IsPublic)
	_, err = h.folders.PublicFolder(ctx, *shared.PublicID, service.PageRequest{})
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestPublicFolderHiddenWhileOwnerPendingDeletion(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	user := h.login(t, "a@example.com").User
	folder, err := h.folders.Create(ctx, user.ID, service.FolderInput{Name: ptr("Bridal")})
	require.NoError(t, err)
	shared, err := h.folders.Share(ctx, user.ID, folder.ID, nil)
	require.NoError(t, err)

	require.NoError(t, h.accounts.RequestDeletion(ctx, user.ID))
	_, err = h.folders.PublicFolder(ctx, *shared.PublicID, service.PageRequest{})
	require.ErrorIs(t, err, appErr.ErrNotFound)

	_, err = h.accounts.CancelDeletion(ctx, user.ID)
	require.NoError(t, err)
	_, err = h.folders.PublicFolder(ctx, *shared.PublicID, service.PageRequest{})
	require.NoError(t, err)
}

func TestSweepRemovesGalleryObjects(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	user := h.login(t, "a@example.com").User
	img := h.upload(t, user.ID, "look")
	_, err := h.folders.Create(ctx, user.ID, service.FolderInput{Name: ptr("Bridal"), ImageIDs: []string{img.ID}})
	require.NoError(t, err)
	_, err = h.clients.Create(ctx, user.ID, newClient("Ada", "Obi"))
	require.NoError(t, err)
	require.NoError(t, h.accounts.RequestDeletion(ctx, user.ID))

	h.clock.Advance(7 * 24 * time.Hour)
	n, err := h.accounts.SweepExpiredDeletions(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	_, err = h.store.Open(ctx, img.StorageKey)
	require.ErrorIs(t, err, appErr.ErrNotFound)
	_, err = repo.NewGalleryRepo(h.conn).GetByID(ctx, user.ID, img.ID)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}
