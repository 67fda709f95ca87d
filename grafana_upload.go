/*
 *    Copyright [2020] Sergey Kudasov
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

package loadgen

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"time"
)

var (
	orgId             = 1
	timerangeTemplate = "Grafana test data: %s/dashboard/db/%s?orgId=%d&from=%d&to=%d"
)

func TimerangeUrl(grafanaURL string, fromEpoch int64, toEpoch int64) {
	log.Infof(timerangeTemplate, strings.TrimRight(grafanaURL, "/"), "graphsense-loadgen", orgId, fromEpoch, toEpoch)
}

func HumanReadableTestInterval(from string, to string) {
	log.Infof("Test time: %s - %s", from, to)
}

type UploadInput struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	PluginID string `json:"pluginId"`
	Value    string `json:"value"`
}

type ImportPayload struct {
	Dashboard Dashboard     `json:"dashboard"`
	Overwrite bool          `json:"overwrite"`
	Inputs    []UploadInput `json:"inputs"`
}

func uploadDashboard(client *http.Client, login string, passwd string, url string, dashboard Dashboard) error {
	payload := ImportPayload{
		Dashboard: dashboard,
		Overwrite: true,
		Inputs: []UploadInput{
			{
				Name:     "DS_LOCAL_GRAPHITE",
				Type:     "datasource",
				PluginID: "graphite",
				Value:    "Local Graphite",
			},
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	req.SetBasicAuth(login, passwd)
	req.Header.Add("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	respBody, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("dashboard %s import failed: %d %s", dashboard.Title, resp.StatusCode, respBody)
	}
	log.Infof("import result: %s", respBody)
	return nil
}

// UploadGrafanaDashboard uploads summary and node dashboards for the request labels
func UploadGrafanaDashboard(cfg *GeneratorConfig, labels []string, runners []string) error {
	title := cfg.Graphite.LoadGeneratorPrefix
	if title == "" {
		title = "graphsense-loadgen"
	}
	url := strings.TrimRight(cfg.Grafana.URL, "/") + "/api/dashboards/import"
	client := &http.Client{Timeout: 30 * time.Second}
	log.Infof("importing grafana dashboard to %s", url)
	summary := GrafanaGeneratorsSummaryDashboard(fmt.Sprintf("%s-summary", title), labels)
	if err := uploadDashboard(client, cfg.Grafana.Login, cfg.Grafana.Password, url, summary); err != nil {
		return err
	}
	node := GrafanaGeneratorNodeDashboard(title, labels, runners, cfg.Graphite.LoadGeneratorPrefix, cfg.Host.Name, cfg.Host.NetworkIface)
	return uploadDashboard(client, cfg.Grafana.Login, cfg.Grafana.Password, url, node)
}
