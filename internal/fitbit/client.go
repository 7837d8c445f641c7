package fitbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	fleet "fleetwatch/internal/fleet/domain"
)

// ErrUnavailable indicates the data source could not serve a device at
// all this cycle. Callers skip the device and move on.
var ErrUnavailable = errors.New("fitbit: source unavailable")

const dateLayout = "2006-01-02"

// Client is a minimal Fitbit Web API client. Each watch carries its own
// bearer token, so requests authenticate per device.
type Client struct {
	baseURL string
	client  *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.client = httpClient
		}
	}
}

// NewClient constructs a Fitbit client.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("fitbit: empty base url")
	}
	client := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type deviceResponse struct {
	Battery      string `json:"battery"`
	BatteryLevel int    `json:"batteryLevel"`
	LastSyncTime string `json:"lastSyncTime"`
	Type         string `json:"type"`
}

type heartResponse struct {
	ActivitiesHeart []struct {
		Value struct {
			RestingHeartRate int `json:"restingHeartRate"`
		} `json:"value"`
	} `json:"activities-heart"`
}

type sleepResponse struct {
	Sleep []struct {
		StartTime string `json:"startTime"`
		EndTime   string `json:"endTime"`
		Duration  int64  `json:"duration"`
	} `json:"sleep"`
}

type activityResponse struct {
	Summary struct {
		Steps int `json:"steps"`
	} `json:"summary"`
}

// Poll gathers one cycle's record for a watch. The devices listing is
// mandatory: if it cannot be fetched the whole poll fails with
// ErrUnavailable. HR, sleep and steps sub-requests degrade to empty
// fields on failure so one flaky endpoint does not hide the others.
func (c *Client) Poll(ctx context.Context, watch fleet.Watch, day time.Time) (fleet.DevicePoll, error) {
	if c == nil {
		return fleet.DevicePoll{}, errors.New("fitbit: nil client")
	}
	poll := fleet.DevicePoll{
		Project:  watch.Project,
		Name:     watch.Name,
		IsActive: watch.IsActive,
	}

	var devices []deviceResponse
	if err := c.getJSON(ctx, watch.Token, "/1/user/-/devices.json", &devices); err != nil {
		return fleet.DevicePoll{}, fmt.Errorf("%w: %s: %v", ErrUnavailable, watch.ID(), err)
	}
	for _, device := range devices {
		if device.Type != "" && !strings.EqualFold(device.Type, "TRACKER") {
			continue
		}
		poll.SyncDate = device.LastSyncTime
		if device.BatteryLevel > 0 {
			poll.Battery = strconv.Itoa(device.BatteryLevel)
		}
		break
	}

	date := day.Format(dateLayout)

	var heart heartResponse
	if err := c.getJSON(ctx, watch.Token, "/1/user/-/activities/heart/date/"+date+"/1d.json", &heart); err == nil {
		if len(heart.ActivitiesHeart) > 0 && heart.ActivitiesHeart[0].Value.RestingHeartRate > 0 {
			poll.HR = strconv.Itoa(heart.ActivitiesHeart[0].Value.RestingHeartRate)
		}
	}

	var sleep sleepResponse
	if err := c.getJSON(ctx, watch.Token, "/1.2/user/-/sleep/date/"+date+".json", &sleep); err == nil {
		if len(sleep.Sleep) > 0 {
			poll.SleepStart = sleep.Sleep[0].StartTime
			poll.SleepEnd = sleep.Sleep[0].EndTime
			if sleep.Sleep[0].Duration > 0 {
				minutes := sleep.Sleep[0].Duration / int64(time.Minute/time.Millisecond)
				poll.SleepDuration = strconv.FormatInt(minutes, 10)
			}
		}
	}

	var activity activityResponse
	if err := c.getJSON(ctx, watch.Token, "/1/user/-/activities/date/"+date+".json", &activity); err == nil {
		if activity.Summary.Steps > 0 {
			poll.Steps = strconv.Itoa(activity.Summary.Steps)
		}
	}

	return poll, nil
}

func (c *Client) getJSON(ctx context.Context, token, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("fitbit: http %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
