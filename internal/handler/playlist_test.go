package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gravix/backend/internal/model"
)

func TestHandlePlaylistCreate(t *testing.T) {
	env := newTestEnv(t)
	alice := register(t, env, "alice")

	t.Run("defaults to private", func(t *testing.T) {
		req := newRequest(alice, http.MethodPost, "/api/playlists", `{"name":"Morning"}`)
		rr := httptest.NewRecorder()

		env.playlists.HandleCreate(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)

		var res model.Playlist
		decodeBody(t, rr, &res)
		assert.Equal(t, alice.ID, res.OwnerID)
		assert.Equal(t, model.VisibilityPrivate, res.Visibility)
	})

	t.Run("invalid visibility", func(t *testing.T) {
		req := newRequest(alice, http.MethodPost, "/api/playlists",
			`{"name":"Broken","visibility":"friends-only"}`)
		rr := httptest.NewRecorder()

		env.playlists.HandleCreate(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestHandlePlaylistVisibility(t *testing.T) {
	env := newTestEnv(t)
	alice := register(t, env, "alice")
	bob := register(t, env, "bob")

	create := func(body string) model.Playlist {
		req := newRequest(alice, http.MethodPost, "/api/playlists", body)
		rr := httptest.NewRecorder()
		env.playlists.HandleCreate(rr, req)
		assert.Equal(t, http.StatusCreated, rr.Code)
		var res model.Playlist
		decodeBody(t, rr, &res)
		return res
	}
	private := create(`{"name":"Secret","visibility":"PRIVATE"}`)
	public := create(`{"name":"Open","visibility":"PUBLIC"}`)

	t.Run("public playlist readable by anyone", func(t *testing.T) {
		req := newRequest(bob, http.MethodGet, "/api/playlists/"+public.ID, "")
		req.SetPathValue("id", public.ID)
		rr := httptest.NewRecorder()

		env.playlists.HandlePublic(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("private playlist reads as missing", func(t *testing.T) {
		req := newRequest(bob, http.MethodGet, "/api/playlists/"+private.ID, "")
		req.SetPathValue("id", private.ID)
		rr := httptest.NewRecorder()

		env.playlists.HandlePublic(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("my listing includes private", func(t *testing.T) {
		req := newRequest(alice, http.MethodGet, "/api/playlists/my", "")
		rr := httptest.NewRecorder()

		env.playlists.HandleMy(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var res []model.Playlist
		decodeBody(t, rr, &res)
		assert.Len(t, res, 2)
	})

	t.Run("user listing shows public only", func(t *testing.T) {
		req := newRequest(bob, http.MethodGet, "/api/playlists/user/alice", "")
		req.SetPathValue("username", "alice")
		rr := httptest.NewRecorder()

		env.playlists.HandleByUser(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var res []model.Playlist
		decodeBody(t, rr, &res)
		assert.Len(t, res, 1)
		assert.Equal(t, "Open", res[0].Name)
	})
}

func TestHandlePlaylistSongs(t *testing.T) {
	env := newTestEnv(t)
	alice := register(t, env, "alice")
	song := upload(t, env, alice, "Daybreak", "rock")

	createReq := newRequest(alice, http.MethodPost, "/api/playlists", `{"name":"Morning"}`)
	createRR := httptest.NewRecorder()
	env.playlists.HandleCreate(createRR, createReq)
	var playlist model.Playlist
	decodeBody(t, createRR, &playlist)

	t.Run("add song", func(t *testing.T) {
		req := newRequest(alice, http.MethodPut, "/api/playlists/"+playlist.ID+"/songs",
			`{"songId":"`+song.ID+`"}`)
		req.SetPathValue("id", playlist.ID)
		rr := httptest.NewRecorder()

		env.playlists.HandleAddSong(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var res model.Playlist
		decodeBody(t, rr, &res)
		assert.Equal(t, []string{song.ID}, res.SongIDs)
		if assert.Len(t, res.Songs, 1) {
			assert.Equal(t, "Daybreak", res.Songs[0].Title)
		}
	})

	t.Run("add missing song", func(t *testing.T) {
		req := newRequest(alice, http.MethodPut, "/api/playlists/"+playlist.ID+"/songs",
			`{"songId":"no-such-song"}`)
		req.SetPathValue("id", playlist.ID)
		rr := httptest.NewRecorder()

		env.playlists.HandleAddSong(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("remove song", func(t *testing.T) {
		req := newRequest(alice, http.MethodDelete, "/api/playlists/"+playlist.ID+"/songs/"+song.ID, "")
		req.SetPathValue("id", playlist.ID)
		req.SetPathValue("songID", song.ID)
		rr := httptest.NewRecorder()

		env.playlists.HandleRemoveSong(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var res model.Playlist
		decodeBody(t, rr, &res)
		assert.Empty(t, res.SongIDs)
	})
}

func TestHandlePlaylistCopy(t *testing.T) {
	env := newTestEnv(t)
	alice := register(t, env, "alice")
	bob := register(t, env, "bob")
	song := upload(t, env, alice, "Daybreak", "rock")

	createReq := newRequest(alice, http.MethodPost, "/api/playlists",
		`{"name":"Open","visibility":"PUBLIC","songs":["`+song.ID+`"]}`)
	createRR := httptest.NewRecorder()
	env.playlists.HandleCreate(createRR, createReq)
	var source model.Playlist
	decodeBody(t, createRR, &source)

	req := newRequest(bob, http.MethodPost, "/api/playlists/"+source.ID+"/copy", "")
	req.SetPathValue("id", source.ID)
	rr := httptest.NewRecorder()

	env.playlists.HandleCopy(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)

	var copied model.Playlist
	decodeBody(t, rr, &copied)
	assert.NotEqual(t, source.ID, copied.ID)
	assert.Equal(t, bob.ID, copied.OwnerID)
	assert.Equal(t, model.VisibilityPrivate, copied.Visibility)
	assert.Equal(t, []string{song.ID}, copied.SongIDs)
}

func TestHandlePlaylistLike(t *testing.T) {
	env := newTestEnv(t)
	alice := register(t, env, "alice")
	bob := register(t, env, "bob")

	createReq := newRequest(alice, http.MethodPost, "/api/playlists",
		`{"name":"Open","visibility":"PUBLIC"}`)
	createRR := httptest.NewRecorder()
	env.playlists.HandleCreate(createRR, createReq)
	var playlist model.Playlist
	decodeBody(t, createRR, &playlist)

	t.Run("like then conflict", func(t *testing.T) {
		for i, wantCode := range []int{http.StatusOK, http.StatusConflict} {
			req := newRequest(bob, http.MethodPatch, "/api/playlists/"+playlist.ID+"/like", "")
			req.SetPathValue("id", playlist.ID)
			rr := httptest.NewRecorder()

			env.playlists.HandleLike(rr, req)

			assert.Equalf(t, wantCode, rr.Code, "like attempt %d", i+1)
		}
	})

	t.Run("dislike then conflict", func(t *testing.T) {
		for i, wantCode := range []int{http.StatusOK, http.StatusConflict} {
			req := newRequest(bob, http.MethodPatch, "/api/playlists/"+playlist.ID+"/dislike", "")
			req.SetPathValue("id", playlist.ID)
			rr := httptest.NewRecorder()

			env.playlists.HandleDislike(rr, req)

			assert.Equalf(t, wantCode, rr.Code, "dislike attempt %d", i+1)
		}
	})
}
