package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"sort"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-login/accounts"
	autherrors "github.com/jrsteele09/go-auth-login/internal/errors"
	"github.com/jrsteele09/go-auth-login/loginflow"
	"github.com/jrsteele09/go-auth-login/server/authflowrepo"
	"github.com/jrsteele09/go-auth-login/toast"
	"github.com/rs/zerolog/log"
)

const contentTypeHTML = "text/html; charset=utf-8"

// LoginPageData is what login.html renders.
type LoginPageData struct {
	AppName string
	FlowID  string
	State   *loginflow.State
	Toasts  []toast.Toast
}

type hiddenField struct {
	Name  string
	Value string
}

// FormPostData is what form_post.html renders: a form posting Fields to
// Location as soon as the page loads.
type FormPostData struct {
	Location string
	Fields   []hiddenField
}

type pageRenderer struct {
	appName  string
	login    *template.Template
	formPost *template.Template
}

func (s *Server) loginRenderer() (*pageRenderer, error) {
	login, err := ParseTemplate("login.html")
	if err != nil {
		return nil, fmt.Errorf("parse login template: %w", err)
	}
	formPost, err := ParseTemplate("form_post.html")
	if err != nil {
		return nil, fmt.Errorf("parse form_post template: %w", err)
	}
	return &pageRenderer{appName: s.config.GetAppName(), login: login, formPost: formPost}, nil
}

// render writes the flow's current view, or the auto-submitting form once
// the flow has redirected.
func (p *pageRenderer) render(w http.ResponseWriter, flow *authflowrepo.Flow) {
	state := flow.Controller.Snapshot()

	var buf bytes.Buffer
	var err error
	if state.Redirect != nil {
		err = p.formPost.Execute(&buf, newFormPostData(state.Redirect))
	} else {
		err = p.login.Execute(&buf, LoginPageData{
			AppName: p.appName,
			FlowID:  flow.ID,
			State:   &state,
			Toasts:  flow.Toasts.List(),
		})
	}
	if err != nil {
		log.Err(err).Str("flow_id", flow.ID).Msg("Failed to render login page")
		http.Error(w, "Failed to render login page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func newFormPostData(redirect *loginflow.Redirect) FormPostData {
	names := make([]string, 0, len(redirect.Fields))
	for name := range redirect.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	data := FormPostData{Location: redirect.Location}
	for _, name := range names {
		for _, value := range redirect.Fields[name] {
			data.Fields = append(data.Fields, hiddenField{Name: name, Value: value})
		}
	}
	return data
}

// StartLoginHandler begins a login flow for the authorization request in the
// state query parameter (GET /oauth2/login).
func (s *Server) StartLoginHandler(pages *pageRenderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		device := s.ensureDevice(w, r)

		flow, err := s.newFlow(device, r.URL.Query().Get(fieldState))
		if err != nil {
			logError(r.Method, r.URL.Path, err.Error())
			http.Error(w, "Failed to start login", http.StatusInternalServerError)
			return
		}

		flow.Controller.Start(r.Context())

		if flow.Controller.Snapshot().Redirect != nil {
			flow.Toasts.Close()
		} else if err := s.flows.Upsert(flow); err != nil {
			logError(r.Method, r.URL.Path, err.Error())
			http.Error(w, "Failed to start login", http.StatusInternalServerError)
			return
		}
		pages.render(w, flow)
	}
}

func (s *Server) newFlow(device, rawState string) (*authflowrepo.Flow, error) {
	store, err := accounts.NewMultiStore(s.deviceStorage(device), s.config.GetStorageKey(), accounts.WithNowTime(s.nowTime))
	if err != nil {
		return nil, fmt.Errorf("[newFlow] open session cache: %w", err)
	}

	now := s.nowTime()
	flow := &authflowrepo.Flow{
		ID:        uuid.NewString(),
		DeviceID:  device,
		Toasts:    toast.NewRelay(toast.WithDuration(s.config.GetToastDuration())),
		CreatedAt: now,
		LastSeen:  now,
	}

	options := []loginflow.Option{loginflow.WithNowTime(s.nowTime)}
	if s.config.GetVerifyOnSelect() {
		options = append(options, loginflow.WithVerifyOnSelect())
	}
	if s.redirectPolicy != nil {
		options = append(options, loginflow.WithRedirectPolicy(s.redirectPolicy))
	}

	flow.Controller, err = loginflow.New(rawState, loginflow.Deps{
		Store:    store,
		Provider: s.provider,
		Notifier: flow.Toasts,
		Redirect: func(location string, fields url.Values) {
			log.Info().Str("flow_id", flow.ID).Str("redirect_uri", location).Bool("error", fields.Has("error")).Msg("Login flow finished")
		},
	}, options...)
	if err != nil {
		return nil, fmt.Errorf("[newFlow] %w", err)
	}
	return flow, nil
}

// ShowFlowHandler renders a live flow (GET /oauth2/login/flow).
func (s *Server) ShowFlowHandler(pages *pageRenderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flow, ok := s.lookupFlow(w, r, r.URL.Query().Get(fieldFlowID))
		if !ok {
			return
		}
		pages.render(w, flow)
	}
}

// flowAction applies one submitted form to a flow.
type flowAction func(ctx context.Context, flow *authflowrepo.Flow, form url.Values)

// FlowActionHandler runs action against the flow named in the posted form,
// then shows the flow again. A flow that redirected is finished: it is
// removed and the browser gets the auto-submitting form instead.
func (s *Server) FlowActionHandler(pages *pageRenderer, action flowAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		flow, ok := s.lookupFlow(w, r, r.PostForm.Get(fieldFlowID))
		if !ok {
			return
		}

		action(r.Context(), flow, r.PostForm)

		if flow.Controller.Snapshot().Redirect != nil {
			if err := s.flows.Delete(flow.ID); err != nil && !errors.Is(err, autherrors.ErrFlowNotFound) {
				log.Err(err).Str("flow_id", flow.ID).Msg("Failed to delete finished flow")
			}
			flow.Toasts.Close()
			pages.render(w, flow)
			return
		}

		redirectSuccess(w, r, RouteLoginFlow+"?"+fieldFlowID+"="+url.QueryEscape(flow.ID))
	}
}

// lookupFlow finds a live flow owned by the requesting browser. It answers
// 400 itself when there is none.
func (s *Server) lookupFlow(w http.ResponseWriter, r *http.Request, id string) (*authflowrepo.Flow, bool) {
	flow, err := s.flows.Get(id, s.nowTime())
	if err != nil {
		if !errors.Is(err, autherrors.ErrFlowNotFound) {
			log.Err(err).Str("flow_id", id).Msg("Failed to load flow")
		}
		http.Error(w, "Login flow not found or expired", http.StatusBadRequest)
		return nil, false
	}
	if flow.DeviceID != deviceID(r) {
		log.Warn().Str("flow_id", id).Msg("Flow requested from another device")
		http.Error(w, "Login flow not found or expired", http.StatusBadRequest)
		return nil, false
	}
	return flow, true
}

func redirectSuccess(w http.ResponseWriter, r *http.Request, path string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

func submitPassword(ctx context.Context, flow *authflowrepo.Flow, form url.Values) {
	flow.Controller.SubmitPassword(ctx, form.Get(fieldIdentity), form.Get(fieldPassword))
}

func requestOTP(ctx context.Context, flow *authflowrepo.Flow, form url.Values) {
	flow.Controller.RequestOTP(ctx, form.Get(fieldEmail))
}

func submitOTP(ctx context.Context, flow *authflowrepo.Flow, form url.Values) {
	flow.Controller.SubmitOTP(ctx, form.Get(fieldCode))
}

func submitConsent(_ context.Context, flow *authflowrepo.Flow, _ url.Values) {
	flow.Controller.SubmitConsent()
}

// selectAccount resolves the posted account key among the flow's valid
// accounts. An unknown key is passed on as nil so the controller reports it.
func selectAccount(ctx context.Context, flow *authflowrepo.Flow, form url.Values) {
	key := form.Get(fieldAccount)
	var selected *accounts.Record
	for _, record := range flow.Controller.Snapshot().ValidAccounts {
		if record != nil && record.Key() == key {
			selected = record
			break
		}
	}
	flow.Controller.SelectAccount(ctx, selected)
}

func switchAccount(_ context.Context, flow *authflowrepo.Flow, _ url.Values) {
	flow.Controller.SwitchAccount()
}

func newAccount(_ context.Context, flow *authflowrepo.Flow, _ url.Values) {
	flow.Controller.NewAccount()
}

func logout(_ context.Context, flow *authflowrepo.Flow, _ url.Values) {
	flow.Controller.Logout()
}

func dismissToast(_ context.Context, flow *authflowrepo.Flow, form url.Values) {
	flow.Toasts.Dismiss(form.Get(fieldToastID))
}
