package main

import (
	"testing"

	"github.com/mblanke/blueplan/plan"
)

func TestBuildDetector(t *testing.T) {
	cfg := &plan.Config{Detection: plan.DefaultDetectionConfig()}
	d, err := buildDetector(cfg)
	if err != nil {
		t.Fatalf("buildDetector: %v", err)
	}
	if _, ok := d.(*plan.GeometryDetector); !ok {
		t.Errorf("detector = %T, want *plan.GeometryDetector", d)
	}

	cfg.Model.Endpoint = "http://inference.local/predict"
	d, err = buildDetector(cfg)
	if err != nil {
		t.Fatalf("buildDetector with model endpoint: %v", err)
	}
	if _, ok := d.(*plan.ModelDetector); !ok {
		t.Errorf("detector = %T, want *plan.ModelDetector", d)
	}
}

func TestBuildDetector_InvalidConfig(t *testing.T) {
	cfg := &plan.Config{Detection: plan.DefaultDetectionConfig()}
	cfg.Detection.MinArea = -1
	if _, err := buildDetector(cfg); err == nil {
		t.Error("negative minArea accepted")
	}
}

func TestProfileDetector(t *testing.T) {
	for _, name := range []string{"", "default", "strict"} {
		if _, err := profileDetector(name); err != nil {
			t.Errorf("profile %q: %v", name, err)
		}
	}
	if _, err := profileDetector("nope"); err == nil {
		t.Error("unknown profile accepted")
	}
}

func TestApplyOptions(t *testing.T) {
	app := NewApp()
	app.ApplyOptions(AppOptions{
		ConfigFile: "conf.yaml",
		Profile:    "strict",
		ImageFile:  "plan.png",
		OutDir:     "out",
		Workers:    8,
		Split:      "val",
	})

	if app.ConfigFile != "conf.yaml" || app.Profile != "strict" {
		t.Errorf("config options not applied: %+v", app)
	}
	if app.ImageFile != "plan.png" || app.OutDir != "out" {
		t.Errorf("path options not applied: %+v", app)
	}
	if app.Workers != 8 || app.Split != "val" {
		t.Errorf("annotate options not applied: %+v", app)
	}
}
