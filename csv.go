package loadgen

import (
	"encoding/csv"
	"io"
	"os"
	"sync"
)

type CSVData struct {
	Mu        *sync.Mutex
	f         *os.File
	CsvWriter *csv.Writer
	CsvReader *csv.Reader
	Recycle   bool
}

func NewCSVData(f *os.File, recycle bool) *CSVData {
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	return &CSVData{
		Mu:        &sync.Mutex{},
		f:         f,
		CsvWriter: csv.NewWriter(f),
		CsvReader: r,
		Recycle:   recycle,
	}
}

// RecycleData reads file from the beginning
func (m *CSVData) RecycleData() error {
	if _, err := m.f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	m.CsvReader = csv.NewReader(m.f)
	m.CsvReader.FieldsPerRecord = -1
	return nil
}

func (m *CSVData) Lock() {
	m.Mu.Lock()
}

func (m *CSVData) Unlock() {
	m.Mu.Unlock()
}

// Read reads a record from csv, starts from the beginning on EOF in recycle mode,
// otherwise returns io.EOF
func (m *CSVData) Read() ([]string, error) {
	st, err := m.CsvReader.Read()
	if err == io.EOF && m.Recycle {
		if err := m.RecycleData(); err != nil {
			return nil, err
		}
		st, err = m.CsvReader.Read()
	}
	if err != nil {
		return nil, err
	}
	return st, nil
}

// Write writes csv string
func (m *CSVData) Write(rec []string) error {
	return m.CsvWriter.Write(rec)
}

func (m *CSVData) Flush() {
	m.CsvWriter.Flush()
}

// Close flushes pending records and closes the file
func (m *CSVData) Close() error {
	m.CsvWriter.Flush()
	if err := m.CsvWriter.Error(); err != nil {
		m.f.Close()
		return err
	}
	return m.f.Close()
}

// DefaultReadCSV reads next record from the handle's csv_read file
func DefaultReadCSV(a Attack) ([]string, error) {
	lm := a.GetManager()
	s, err := lm.CsvForHandle(a.GetRunner().Config.ReadFromCsvName)
	if err != nil {
		return nil, err
	}
	s.Lock()
	defer s.Unlock()
	return s.Read()
}

// DefaultWriteCSV writes records to the handle's csv_write file
func DefaultWriteCSV(a Attack, data ...[]string) error {
	lm := a.GetManager()
	s, err := lm.CsvForHandle(a.GetRunner().Config.WriteToCsvName)
	if err != nil {
		return err
	}
	s.Lock()
	defer s.Unlock()
	for _, rec := range data {
		if err := s.Write(rec); err != nil {
			return err
		}
	}
	s.Flush()
	return s.CsvWriter.Error()
}
