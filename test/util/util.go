// Package util provides helpers shared across integration tests.
//
// StartMosquitto launches a disposable Mosquitto broker in a Docker container
// for MQTT-based tests. It returns the broker URL and a cleanup function.
//
// WaitForMetric polls a Prometheus metrics endpoint until the desired metric
// appears in the output.
//
// WriteDataset writes a small pilot roster, drone fleet and mission export
// into a directory so tests can drive the CSV loader end to end.
package util

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// Default timeouts for helper operations
	MosquittoReadyTimeout = 5 * time.Second
	MetricTimeout         = 5 * time.Second

	pollInterval = 50 * time.Millisecond
)

// Dataset file contents. PRJ001 and PRJ002 overlap and share pilot P001;
// PRJ002 also flies in rain with an unrated drone.
const (
	PilotsCSV = `pilot_id,name,skills,certifications,drone_experience_hours,current_location,current_assignment,status,hourly_rate
P001,Arjun,"Mapping, Survey",DGCA,1200,Bangalore,PRJ001,Available,1500
P002,Neha,"Mapping, Inspection",DGCA,800,Bangalore,,Available,1200
P003,Rohit,Mapping,DGCA,400,Mumbai,,On Leave,900
`
	DronesCSV = `drone_id,model,capabilities,current_assignment,status,current_location,weather_rating,maintenance_due_date,daily_rate
D001,DJI M300,"Mapping, LiDAR",PRJ001,Active,Bangalore,IP45,2026-12-01,4000
D002,DJI Mavic 3,Mapping,PRJ002,Active,Bangalore,None,2026-12-01,2500
D003,Autel Evo,Mapping,,Active,Bangalore,IP43,2026-12-01,3000
`
	MissionsCSV = `project_id,client,location,required_skills,required_certifications,start_date,end_date,priority,assigned_pilot,assigned_drone,status,budget,weather_forecast
PRJ001,Client A,Bangalore,Mapping,DGCA,2026-11-01,2026-11-05,High,P001,D001,Active,100000,Sunny
PRJ002,Client B,Bangalore,Mapping,DGCA,2026-11-03,2026-11-06,Urgent,P001,D002,Active,100000,Rainy
`
)

// WriteDataset writes the default dataset into dir.
func WriteDataset(dir string) error {
	files := map[string]string{
		"pilot_roster.csv": PilotsCSV,
		"drone_fleet.csv":  DronesCSV,
		"missions.csv":     MissionsCSV,
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// WaitForMetric polls the given metrics URL until the provided substring is
// found in the output or the context is done.
func WaitForMetric(ctx context.Context, metricsURL, substr string) error {
	for {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, metricsURL, nil)
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			body, rerr := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if rerr != nil {
				return fmt.Errorf("read metrics body: %w", rerr)
			}
			if strings.Contains(string(body), substr) {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("metric %q not found: %w", substr, ctx.Err())
		case <-time.After(pollInterval):
		}
	}
}

// StartMosquitto launches a temporary Mosquitto broker inside a Docker
// container and returns its broker URL along with a cleanup function.
func StartMosquitto(ctx context.Context) (string, func(), error) {
	conf := `listener 1883
allow_anonymous true
persistence false
log_dest stdout
log_type error
log_type warning
connection_messages true
`

	dir, err := os.MkdirTemp("", "mosq")
	if err != nil {
		return "", nil, err
	}
	path := filepath.Join(dir, "mosquitto.conf")
	if err := os.WriteFile(path, []byte(conf), 0o644); err != nil {
		_ = os.RemoveAll(dir)
		return "", nil, err
	}

	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
		Files: []tc.ContainerFile{
			{
				HostFilePath:      path,
				ContainerFilePath: "/mosquitto/config/mosquitto.conf",
				FileMode:          0o644,
			},
		},
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		_ = os.RemoveAll(dir)
		return "", nil, err
	}

	cleanup := func() {
		_ = cont.Terminate(context.Background())
		_ = os.RemoveAll(dir)
	}

	host, err := cont.Host(ctx)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	port, err := cont.MappedPort(ctx, "1883")
	if err != nil {
		cleanup()
		return "", nil, err
	}
	broker := fmt.Sprintf("tcp://%s:%s", host, port.Port())

	waitCtx, cancel := context.WithTimeout(ctx, MosquittoReadyTimeout)
	defer cancel()
	if err := waitForMQTTReady(waitCtx, broker); err != nil {
		cleanup()
		return "", nil, err
	}

	return broker, cleanup, nil
}

func waitForMQTTReady(ctx context.Context, broker string) error {
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID("droneops-readiness")
	for {
		cli := paho.NewClient(opts)
		token := cli.Connect()
		token.Wait()
		if token.Error() == nil {
			cli.Disconnect(100)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
