package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/VictorTelvoice/telsim-sub001/internal/domain/model"
	"gopkg.in/yaml.v3"
)

type slotsFile struct {
	Slots []slotEntry `yaml:"slots"`
}

type slotEntry struct {
	SlotID      string `yaml:"slot_id"`
	PhoneNumber string `yaml:"phone_number"`
}

func loadSlotsFromYAML(path string) ([]*model.Slot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read slots file: %w", err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var file slotsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unmarshal slots yaml: %w", err)
	}

	slots := make([]*model.Slot, 0, len(file.Slots))
	for i, entry := range file.Slots {
		if entry.SlotID == "" {
			return nil, fmt.Errorf("slots[%d]: slot_id is required", i)
		}

		phone := strings.TrimSpace(entry.PhoneNumber)
		if phone == "" {
			return nil, fmt.Errorf("slots[%d]: phone_number is required", i)
		}

		slots = append(slots, &model.Slot{
			SlotID:      entry.SlotID,
			PhoneNumber: phone,
			Status:      model.SlotStatusFree,
		})
	}

	return slots, nil
}
