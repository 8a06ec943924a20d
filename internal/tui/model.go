// ============================================================================
// Dolmetscher - Sprach-Übersetzungsclient
// ============================================================================
//
// Package:     tui
// Description: Terminal UI for recording, translating and saving
// Author:      Mike Stoffels
// Created:     2026-10-16
// License:     MIT
// ============================================================================

package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/msto63/dolmetscher/internal/audio"
	"github.com/msto63/dolmetscher/internal/i18n"
	"github.com/msto63/dolmetscher/internal/languages"
	"github.com/msto63/dolmetscher/internal/orchestrator"
	"github.com/msto63/dolmetscher/internal/store"
	"github.com/msto63/dolmetscher/internal/translate"
	"github.com/msto63/dolmetscher/pkg/core/version"
)

// Pipeline is the orchestration handle the UI renders from
type Pipeline interface {
	TranscribeAndTranslate(ctx context.Context, rec audio.Recording) (*translate.Result, error)
	Snapshot() orchestrator.State
	InFlight() bool
	FirstTranslation() string
	SaveCurrent(ctx context.Context) (*store.Transcript, error)
}

// Speaker plays text aloud
type Speaker interface {
	Speak(ctx context.Context, text, lang string) error
	Speaking() bool
}

const levelInterval = 100 * time.Millisecond

type levelTickMsg struct{}

type autoStopMsg struct {
	take int
}

type translatedMsg struct {
	err error
}

type savedMsg struct {
	transcript *store.Transcript
	err        error
}

type spokeMsg struct {
	err error
}

// Model is the main TUI model
type Model struct {
	pipeline Pipeline
	recorder audio.Capturer
	speaker  Speaker
	msgs     *i18n.Localizer
	ctx      context.Context

	width  int
	height int
	ready  bool

	recording bool
	take      int
	level     float64
	lastRec   *audio.Recording
	status    string
	err       error

	spinner  spinner.Model
	viewport viewport.Model
}

// NewModel creates the model. speaker may be nil, a nil localizer renders
// the default locale.
func NewModel(ctx context.Context, pipeline Pipeline, recorder audio.Capturer, speaker Speaker, msgs *i18n.Localizer) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorPrimary)

	return Model{
		pipeline: pipeline,
		recorder: recorder,
		speaker:  speaker,
		msgs:     msgs,
		ctx:      ctx,
		spinner:  sp,
		status:   msgs.T("tui.ready"),
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.recording {
				m.recorder.Stop()
			}
			return m, tea.Quit
		case "r":
			return m.toggleRecording()
		case "enter":
			return m.startTranslation()
		case "s":
			return m.save()
		case "p":
			return m.speak()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, max(msg.Height-12, 3))
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = max(msg.Height-12, 3)
		}
		m.updateContent()

	case levelTickMsg:
		if m.recording {
			m.level = m.recorder.Level()
			cmds = append(cmds, levelTick())
		}

	case autoStopMsg:
		if m.recording && msg.take == m.take {
			return m.stopRecording(m.msgs.T("tui.auto_stopped"))
		}

	case translatedMsg:
		m.err = msg.err
		if msg.err == nil {
			m.status = m.msgs.T("tui.translated")
		} else {
			m.status = m.msgs.T("tui.translate_failed")
		}
		m.updateContent()

	case savedMsg:
		m.err = msg.err
		if msg.err == nil {
			m.status = m.msgs.Tf("tui.saved", "ID", msg.transcript.ID)
		}

	case spokeMsg:
		if msg.err != nil {
			m.err = msg.err
		}

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	if m.ready {
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) toggleRecording() (tea.Model, tea.Cmd) {
	if m.recording {
		return m.stopRecording(m.msgs.T("tui.stopped"))
	}
	if m.pipeline.InFlight() {
		return m, nil
	}
	if err := m.recorder.Start(m.ctx); err != nil {
		m.err = err
		m.status = m.msgs.Tf("tui.mic_unavailable", "Permission", m.recorder.Permission().String())
		return m, nil
	}
	m.recording = true
	m.take++
	m.err = nil
	m.status = m.msgs.T("tui.recording")
	return m, tea.Batch(levelTick(), waitForAutoStop(m.recorder.Done(), m.take))
}

func (m Model) stopRecording(status string) (tea.Model, tea.Cmd) {
	rec, err := m.recorder.Stop()
	m.recording = false
	m.level = 0
	if err != nil && len(rec.Data) == 0 {
		m.err = err
		return m, nil
	}
	m.lastRec = &rec
	m.status = m.msgs.Tf("tui.press_enter", "Status", status)
	return m, nil
}

func (m Model) startTranslation() (tea.Model, tea.Cmd) {
	if m.recording || m.lastRec == nil || m.pipeline.InFlight() {
		return m, nil
	}
	m.err = nil
	m.status = m.msgs.T("tui.processing")

	rec := *m.lastRec
	pipeline := m.pipeline
	ctx := m.ctx
	return m, func() tea.Msg {
		_, err := pipeline.TranscribeAndTranslate(ctx, rec)
		return translatedMsg{err: err}
	}
}

func (m Model) save() (tea.Model, tea.Cmd) {
	if m.pipeline.InFlight() {
		return m, nil
	}
	pipeline := m.pipeline
	ctx := m.ctx
	return m, func() tea.Msg {
		t, err := pipeline.SaveCurrent(ctx)
		return savedMsg{transcript: t, err: err}
	}
}

func (m Model) speak() (tea.Model, tea.Cmd) {
	if m.speaker == nil || m.speaker.Speaking() {
		return m, nil
	}
	text := m.pipeline.FirstTranslation()
	snap := m.pipeline.Snapshot()
	if text == "" || len(snap.TargetCodes) == 0 {
		return m, nil
	}
	lang := snap.TargetCodes[0]
	speaker := m.speaker
	ctx := m.ctx
	return m, func() tea.Msg {
		return spokeMsg{err: speaker.Speak(ctx, text, lang)}
	}
}

func levelTick() tea.Cmd {
	return tea.Tick(levelInterval, func(time.Time) tea.Msg {
		return levelTickMsg{}
	})
}

func waitForAutoStop(done <-chan struct{}, take int) tea.Cmd {
	return func() tea.Msg {
		<-done
		return autoStopMsg{take: take}
	}
}

func (m *Model) updateContent() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(renderResult(m.pipeline.Snapshot(), m.width, m.msgs))
	m.viewport.GotoTop()
}

// renderResult renders the source text and one block per target
func renderResult(s orchestrator.State, width int, msgs *i18n.Localizer) string {
	if !s.HasResult() {
		return SubtitleStyle.Render(msgs.T("tui.empty"))
	}

	var b strings.Builder
	source := s.SourceLanguageName()
	if !s.SourceResolved && s.SourceLanguageCode != "" {
		source += " (?)"
	}
	b.WriteString(LanguageLabelStyle.Render(msgs.T("tui.original") + " · " + source))
	b.WriteString("\n")
	b.WriteString(SourceTextStyle.Width(max(width-4, 20)).Render(s.SourceText))
	b.WriteString("\n\n")

	for _, code := range s.TargetCodes {
		b.WriteString(LanguageLabelStyle.Render(languages.DisplayName(code) + " (" + code + ")"))
		b.WriteString("\n")
		b.WriteString(TranslationStyle.Width(max(width-4, 20)).Render(s.Translations[code]))
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// View renders the UI
func (m Model) View() string {
	if !m.ready {
		return m.msgs.T("tui.loading")
	}

	var s strings.Builder

	s.WriteString(RenderTitle("Dolmetscher " + version.App))
	s.WriteString("\n")
	s.WriteString(m.renderStatus())
	s.WriteString("\n")

	box := BoxStyle
	if m.pipeline.InFlight() {
		box = FocusedBoxStyle
	}
	s.WriteString(box.Render(m.viewport.View()))
	s.WriteString("\n")

	if m.err != nil {
		s.WriteString(RenderError(m.msgs.Tf("error", "Error", m.err.Error())))
		s.WriteString("\n")
	}
	if u := m.pipeline.Snapshot().Usage; u != nil {
		s.WriteString(SubtitleStyle.Render(formatUsage(u, m.msgs)))
		s.WriteString("\n")
	}

	s.WriteString(RenderHelp(m.msgs.T("tui.help")))
	return s.String()
}

func (m Model) renderStatus() string {
	var parts []string
	switch {
	case m.recording:
		parts = append(parts, RecordingStyle.Render("● REC"), RenderLevel(m.level, 20))
	case m.pipeline.InFlight():
		parts = append(parts, m.spinner.View())
	}
	parts = append(parts, m.status)
	return StatusBarStyle.Render(strings.Join(parts, " "))
}

func formatUsage(u *translate.Usage, msgs *i18n.Localizer) string {
	var parts []string
	if u.AudioSeconds > 0 {
		parts = append(parts, msgs.Tf("usage.audio", "Seconds", fmt.Sprintf("%.1f", u.AudioSeconds)))
	}
	if u.TotalTokens > 0 {
		parts = append(parts, msgs.Tf("usage.tokens",
			"Total", u.TotalTokens, "Prompt", u.PromptTokens, "Completion", u.CompletionTokens))
	}
	return strings.Join(parts, " · ")
}

// Run starts the program on the alternate screen
func Run(ctx context.Context, pipeline Pipeline, recorder audio.Capturer, speaker Speaker, msgs *i18n.Localizer) error {
	p := tea.NewProgram(NewModel(ctx, pipeline, recorder, speaker, msgs), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
