package handler

import (
	"bytes"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/hemline/internal/notify"
	"github.com/xxxsen/hemline/internal/pkg/errcode"
)

type idOnly struct {
	ID string `json:"id"`
}

func TestClientAndOrderRoutes(t *testing.T) {
	s := newTestServer(t)
	session, _ := s.login(t, "a@example.com")
	auth := bearer(session.AccessToken)

	w := s.do(t, http.MethodPost, "/api/v1/clients", gin.H{
		"first_name":       "Ada",
		"last_name":        "Obi",
		"gender":           "Female",
		"measurement_unit": "inches",
		"measurements":     gin.H{"waist": 30},
		"orders":           []gin.H{{"item": "Kaftan"}},
	}, auth)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var client struct {
		ID           string             `json:"id"`
		Measurements map[string]float64 `json:"measurements"`
		TotalOrders  int                `json:"total_orders"`
	}
	decode(t, w, &client)
	require.Equal(t, 30.0, client.Measurements["waist"])
	require.Equal(t, 1, client.TotalOrders)

	w = s.do(t, http.MethodPost, "/api/v1/clients/"+client.ID+"/orders", gin.H{"orders": []gin.H{{"item": "Agbada", "quantity": 2}}}, auth)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Orders []struct {
			ID         string `json:"id"`
			ClientName string `json:"client_name"`
		} `json:"orders"`
	}
	decode(t, w, &created)
	require.Len(t, created.Orders, 1)
	require.Equal(t, "Ada Obi", created.Orders[0].ClientName)

	w = s.do(t, http.MethodPatch, "/api/v1/orders/"+created.Orders[0].ID+"/mark_done", nil, auth)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/v1/orders?status=pending&client_id="+client.ID, nil, auth)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var pending struct {
		Orders     []idOnly `json:"orders"`
		Pagination struct {
			Total int `json:"total"`
		} `json:"pagination"`
	}
	decode(t, w, &pending)
	require.Equal(t, 1, pending.Pagination.Total)

	w = s.do(t, http.MethodDelete, "/api/v1/orders/bulk_delete", gin.H{"order_ids": []string{created.Orders[0].ID}}, auth)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var affected affectedResponse
	decode(t, w, &affected)
	require.EqualValues(t, 1, affected.AffectedCount)

	w = s.do(t, http.MethodGet, "/api/v1/clients?in_trash=maybe", nil, auth)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "in_trash must be true or false", decode(t, w, nil).Message)

	w = s.do(t, http.MethodDelete, "/api/v1/clients/bulk_delete", gin.H{"client_ids": []string{client.ID}}, auth)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &affected)
	require.EqualValues(t, 1, affected.AffectedCount)

	w = s.do(t, http.MethodGet, "/api/v1/clients?in_trash=true", nil, auth)
	require.Equal(t, http.StatusOK, w.Code)
	var trashed struct {
		Clients []idOnly `json:"clients"`
	}
	decode(t, w, &trashed)
	require.Len(t, trashed.Clients, 1)
}

func TestClientValidationMessage(t *testing.T) {
	s := newTestServer(t)
	session, _ := s.login(t, "a@example.com")

	w := s.do(t, http.MethodPost, "/api/v1/clients", gin.H{"first_name": "Ada", "last_name": "Obi", "gender": "x"}, bearer(session.AccessToken))
	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w, nil)
	require.Equal(t, errcode.ErrInvalid, env.Code)
	require.Equal(t, "gender must be Male or Female", env.Message)

	w = s.do(t, http.MethodGet, "/api/v1/clients/missing", nil, bearer(session.AccessToken))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestWorkspaceClosedWhilePendingDeletion(t *testing.T) {
	s := newTestServer(t)
	session, _ := s.login(t, "a@example.com")
	w := s.do(t, http.MethodPost, "/api/v1/account/deletion", nil, bearer(session.AccessToken))
	require.Equal(t, http.StatusOK, w.Code)
	gated, _ := s.login(t, "a@example.com")
	require.True(t, gated.ToBeDeleted)

	for _, path := range []string{"/api/v1/clients", "/api/v1/orders", "/api/v1/gallery/galleries", "/api/v1/gallery/folders"} {
		w = s.do(t, http.MethodGet, path, nil, bearer(gated.AccessToken))
		require.Equal(t, http.StatusForbidden, w.Code, path)
	}
}

func (s *testServer) uploadImage(t *testing.T, token, filename string) string {
	t.Helper()
	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 4, 4))))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(img.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("description", "first fitting"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/gallery/galleries/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var out struct {
		ID          string `json:"id"`
		FileName    string `json:"file_name"`
		Description string `json:"description"`
		Width       int    `json:"width"`
	}
	decode(t, rec, &out)
	require.Equal(t, strings.TrimSuffix(filename, ".png"), out.FileName)
	require.Equal(t, "first fitting", out.Description)
	require.Equal(t, 4, out.Width)
	return out.ID
}

func TestGalleryFolderShareRoutes(t *testing.T) {
	s := newTestServer(t)
	session, _ := s.login(t, "a@example.com")
	auth := bearer(session.AccessToken)
	imageID := s.uploadImage(t, session.AccessToken, "bridal.png")

	w := s.do(t, http.MethodPost, "/api/v1/gallery/folders", gin.H{"name": "Bridal", "image_ids": []string{imageID}}, auth)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var folder idOnly
	decode(t, w, &folder)

	w = s.do(t, http.MethodPatch, "/api/v1/gallery/folders/"+folder.ID+"/set_cover_image", gin.H{"image_id": imageID}, auth)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/v1/gallery/folders/"+folder.ID+"/share", gin.H{"emails": []string{"friend@example.com"}}, auth)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var shared struct {
		PublicID  string `json:"public_id"`
		PublicURL string `json:"public_url"`
	}
	decode(t, w, &shared)
	require.Equal(t, "https://app.example.com/folders/"+shared.PublicID, shared.PublicURL)
	s.notifier.Wait()
	require.Len(t, s.sender.ByTag(notify.KindFolderShareNotice), 1)

	w = s.do(t, http.MethodGet, "/api/v1/public/folders/"+shared.PublicID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var public struct {
		Owner struct {
			Email string `json:"email"`
		} `json:"owner"`
		Images []idOnly `json:"images"`
	}
	decode(t, w, &public)
	require.Equal(t, "a@example.com", public.Owner.Email)
	require.Len(t, public.Images, 1)
	require.NotContains(t, w.Body.String(), "storage_key")

	w = s.do(t, http.MethodDelete, "/api/v1/gallery/folders/"+folder.ID+"/remove_images", gin.H{"image_ids": []string{imageID}}, auth)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var removed struct {
		CoverImageID *string `json:"cover_image_id"`
	}
	decode(t, w, &removed)
	require.Nil(t, removed.CoverImageID)

	w = s.do(t, http.MethodDelete, "/api/v1/gallery/folders/"+folder.ID+"/share", nil, auth)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(t, http.MethodGet, "/api/v1/public/folders/"+shared.PublicID+"/images", nil, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodDelete, "/api/v1/gallery/galleries/"+imageID, nil, auth)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(t, http.MethodGet, "/api/v1/gallery/galleries/"+imageID, nil, auth)
	require.Equal(t, http.StatusNotFound, w.Code)
}
