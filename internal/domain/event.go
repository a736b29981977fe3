package domain

import "encoding/json"

// Server to client event names
const (
	EventConnected        = "connected"
	EventProgress         = "progress"
	EventVideoReady       = "video_ready"
	EventDownloadReady    = "download_ready"
	EventPlaylistInfo     = "playlist_info"
	EventNextVideo        = "next_video"
	EventVideoDone        = "video_done"
	EventStatus           = "status"
	EventPlaylistComplete = "playlist_complete"
	EventCaptionsList     = "captions_list"
	EventCaptionReady     = "caption_ready"
	EventError            = "error"
)

// Client to server message names
const (
	MsgStartVideo    = "start_video_download"
	MsgStartAudio    = "start_audio_download"
	MsgStartPlaylist = "start_playlist_download"
	MsgFetchCaptions = "fetch_captions"
	MsgDownloadCap   = "download_caption"
	MsgCancel        = "cancel_download"
)

// Event is the wire envelope used in both directions
type Event struct {
	Name string      `json:"event"`
	Data interface{} `json:"data"`
}

// ClientMessage is an inbound envelope whose payload is decoded per message name
type ClientMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// JobRequest is the payload of every start_* message and download_caption
type JobRequest struct {
	URL  string `json:"url"`
	Code string `json:"code,omitempty"`
}

// ConnectedData is sent once when a session opens
type ConnectedData struct {
	SessionID string `json:"session_id"`
}

// ProgressData carries a percentage rounded to one decimal
type ProgressData struct {
	Percentage float64 `json:"percentage"`
}

// FileReadyData points the client at the delivery endpoint
type FileReadyData struct {
	FileURL string `json:"file_url"`
}

type PlaylistInfoData struct {
	Title string `json:"title"`
	Count int    `json:"count"`
}

type NextVideoData struct {
	Index int    `json:"index"`
	Title string `json:"title"`
}

type VideoDoneData struct {
	Index int `json:"index"`
}

type StatusData struct {
	Message string `json:"message"`
}

type CaptionsListData struct {
	Title  string         `json:"title"`
	Tracks []CaptionTrack `json:"tracks"`
}

type ErrorData struct {
	Message string `json:"message"`
}

// MessageKinds maps start messages to the job kind they create
var MessageKinds = map[string]JobKind{
	MsgStartVideo:    KindVideo,
	MsgStartAudio:    KindAudio,
	MsgStartPlaylist: KindPlaylist,
	MsgFetchCaptions: KindCaptionsList,
	MsgDownloadCap:   KindCaptionDownload,
}

// ReadyEvent returns the event name announcing a finished artifact for a job kind
func ReadyEvent(kind JobKind) string {
	switch kind {
	case KindVideo:
		return EventVideoReady
	case KindAudio:
		return EventDownloadReady
	case KindPlaylist:
		return EventPlaylistComplete
	case KindCaptionDownload:
		return EventCaptionReady
	}
	return ""
}

func NewProgressEvent(percentage float64) Event {
	return Event{Name: EventProgress, Data: ProgressData{Percentage: percentage}}
}

func NewStatusEvent(message string) Event {
	return Event{Name: EventStatus, Data: StatusData{Message: message}}
}

func NewErrorEvent(message string) Event {
	return Event{Name: EventError, Data: ErrorData{Message: message}}
}
