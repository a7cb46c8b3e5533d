package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/endpoint-balancer/pkg/logger"
)

var _ = Describe("Logger", func() {
	ctx := context.Background()

	Describe("New", func() {
		It("should create a logger", func() {
			Expect(logger.New("info", false, "dev")).NotTo(BeNil())
			Expect(logger.New("info", true, "prod")).NotTo(BeNil())
		})
	})

	DescribeTable("ParseLevel",
		func(input string, expected slog.Level) {
			Expect(logger.ParseLevel(input)).To(Equal(expected))
		},
		Entry("debug", "debug", slog.LevelDebug),
		Entry("info", "info", slog.LevelInfo),
		Entry("warn", "warn", slog.LevelWarn),
		Entry("error", "error", slog.LevelError),
		Entry("mixed case", "WARN", slog.LevelWarn),
		Entry("invalid defaults to info", "invalid", slog.LevelInfo),
	)

	DescribeTable("level filtering",
		func(level string, enabled, disabled slog.Level) {
			log := logger.New(level, false, "dev")

			Expect(log.Enabled(ctx, enabled)).To(BeTrue())
			Expect(log.Enabled(ctx, disabled)).To(BeFalse())
		},
		Entry("info", "info", slog.LevelInfo, slog.LevelDebug),
		Entry("warn", "warn", slog.LevelWarn, slog.LevelInfo),
		Entry("error", "error", slog.LevelError, slog.LevelWarn),
	)

	Describe("NewWithWriter", func() {
		It("should write JSON in prod with service and environment attributes", func() {
			var buf bytes.Buffer
			log := logger.NewWithWriter(&buf, "info", false, "prod")

			log.Info("Endpoint registered", slog.String("id", "abc"))

			var record map[string]any
			Expect(json.Unmarshal(buf.Bytes(), &record)).To(Succeed())
			Expect(record).To(HaveKeyWithValue("msg", "Endpoint registered"))
			Expect(record).To(HaveKeyWithValue("service", "endpoint-balancer"))
			Expect(record).To(HaveKeyWithValue("environment", "prod"))
			Expect(record).To(HaveKeyWithValue("id", "abc"))
		})

		It("should write text outside prod", func() {
			var buf bytes.Buffer
			log := logger.NewWithWriter(&buf, "info", false, "dev")

			log.Info("hello")

			Expect(buf.String()).To(ContainSubstring("msg=hello"))
			Expect(buf.String()).To(ContainSubstring("environment=dev"))
		})
	})

	Describe("Discard", func() {
		It("should drop every level", func() {
			log := logger.Discard()
			Expect(log.Enabled(ctx, slog.LevelError)).To(BeFalse())
		})
	})
})
