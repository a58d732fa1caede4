package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bitfantasy/nimo-p2p/internal/p2p/entity"
	"github.com/bitfantasy/nimo-p2p/internal/p2p/repository"
	"github.com/minio/minio-go/v7"
	"github.com/xuri/excelize/v2"
)

// ExportService 导出服务，负责订单Excel导出和全量状态快照
type ExportService struct {
	repos       *repository.Repositories
	minioClient *minio.Client
	bucketName  string
	exportDir   string
}

func NewExportService(repos *repository.Repositories, minioClient *minio.Client, bucketName, exportDir string) *ExportService {
	return &ExportService{
		repos:       repos,
		minioClient: minioClient,
		bucketName:  bucketName,
		exportDir:   exportDir,
	}
}

var orderExportHeaders = []string{
	"序号", "物料编码", "物料名称", "数量", "单位", "单价", "小计", "已收数量", "行状态",
}

// ExportOrder 导出采购订单为xlsx
func (s *ExportService) ExportOrder(ctx context.Context, orderID string) (*excelize.File, string, error) {
	order, err := s.repos.Order.FindByID(ctx, orderID)
	if err != nil {
		return nil, "", fmt.Errorf("order not found: %w", err)
	}

	f := excelize.NewFile()
	sheet := "Order"
	f.SetSheetName("Sheet1", sheet)

	// 表头样式: 加粗
	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	// 单据抬头
	f.SetCellValue(sheet, "A1", "订单编号")
	f.SetCellValue(sheet, "B1", order.OrderCode)
	f.SetCellValue(sheet, "C1", "供应商")
	f.SetCellValue(sheet, "D1", order.Vendor)
	f.SetCellValue(sheet, "E1", "状态")
	f.SetCellValue(sheet, "F1", order.Status)
	f.SetCellValue(sheet, "G1", "币种")
	f.SetCellValue(sheet, "H1", order.Currency)

	// 写入表头
	headerRow := 3
	for i, h := range orderExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := fmt.Sprintf("%s%d", col, headerRow)
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	// 写入数据行
	var total float64
	for rowIdx, item := range order.Items {
		row := headerRow + 1 + rowIdx
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), item.SortOrder)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), item.MaterialCode)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), item.MaterialName)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), item.Quantity)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), item.Unit)
		if item.UnitPrice != nil {
			f.SetCellValue(sheet, fmt.Sprintf("F%d", row), *item.UnitPrice)
			subtotal := *item.UnitPrice * item.Quantity
			f.SetCellValue(sheet, fmt.Sprintf("G%d", row), subtotal)
			total += subtotal
		}
		f.SetCellValue(sheet, fmt.Sprintf("H%d", row), item.ReceivedQty)
		f.SetCellValue(sheet, fmt.Sprintf("I%d", row), item.Status)
	}

	// 底部汇总行
	summaryRow := headerRow + 1 + len(order.Items)
	summaryStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	f.SetCellValue(sheet, fmt.Sprintf("A%d", summaryRow), "汇总")
	f.SetCellValue(sheet, fmt.Sprintf("C%d", summaryRow), fmt.Sprintf("总行项数: %d", len(order.Items)))
	f.SetCellValue(sheet, fmt.Sprintf("G%d", summaryRow), total)
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("I%d", summaryRow), summaryStyle)

	colWidths := []float64{6, 16, 20, 10, 6, 10, 12, 10, 10}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}

	filename := fmt.Sprintf("Order_%s.xlsx", order.OrderCode)
	return f, filename, nil
}

// StateSnapshot 全量业务状态快照
type StateSnapshot struct {
	ExportedAt   time.Time            `json:"exported_at"`
	Materials    []entity.Material    `json:"materials"`
	Requisitions []entity.Requisition `json:"requisitions"`
	Orders       []entity.Order       `json:"orders"`
}

// ExportState 导出全量状态为JSON
// 配置了MinIO则上传对象存储，否则落到本地导出目录
func (s *ExportService) ExportState(ctx context.Context) (string, error) {
	snapshot := &StateSnapshot{ExportedAt: time.Now()}

	materials, _, err := s.repos.Material.FindAll(ctx, 1, 10000, nil)
	if err != nil {
		return "", fmt.Errorf("list materials: %w", err)
	}
	snapshot.Materials = materials

	requisitions, _, err := s.repos.Requisition.FindAll(ctx, 1, 10000, nil)
	if err != nil {
		return "", fmt.Errorf("list requisitions: %w", err)
	}
	for i := range requisitions {
		full, err := s.repos.Requisition.FindByID(ctx, requisitions[i].ID)
		if err != nil {
			return "", err
		}
		requisitions[i] = *full
	}
	snapshot.Requisitions = requisitions

	orders, _, err := s.repos.Order.FindAll(ctx, 1, 10000, nil)
	if err != nil {
		return "", fmt.Errorf("list orders: %w", err)
	}
	for i := range orders {
		full, err := s.repos.Order.FindByID(ctx, orders[i].ID)
		if err != nil {
			return "", err
		}
		orders[i] = *full
	}
	snapshot.Orders = orders

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	name := fmt.Sprintf("state/%s.json", time.Now().Format("20060102-150405"))
	if s.minioClient != nil {
		_, err = s.minioClient.PutObject(ctx, s.bucketName, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
			ContentType: "application/json",
		})
		if err != nil {
			return "", fmt.Errorf("upload snapshot: %w", err)
		}
		return name, nil
	}

	dir := s.exportDir
	if dir == "" {
		dir = "exports"
	}
	if err := os.MkdirAll(filepath.Join(dir, "state"), 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}
