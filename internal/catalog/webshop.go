package catalog

import "webshop/internal/domain"

func parseWarrantyStatus(v any) (any, error) {
	st, err := domain.ParseWarrantyStatus(v)
	if err != nil {
		return nil, err
	}
	return int64(st), nil
}

func pk(name string) Column {
	return Column{Name: name, Type: Int, SQLType: "INT(5)", AutoIncrement: true}
}

// Default returns the webshop schema.
func Default() *Catalog {
	return New(
		NewTable(domain.TableProducts, domain.ColProdID,
			pk(domain.ColProdID),
			Column{Name: domain.ColProdCode, Type: String, SQLType: "VARCHAR(255)", Size: 255},
			Column{Name: domain.ColProdQuantTot, Type: Int, SQLType: "INT(5)", Default: "0", Derived: true},
		),
		NewTable(domain.TablePrice, domain.ColPriceID,
			pk(domain.ColPriceID),
			Column{Name: domain.ColProdID, Type: Int, SQLType: "INT(5)"},
			Column{Name: domain.ColNetPrice, Type: Decimal, SQLType: "DECIMAL(6, 2)"},
			Column{Name: domain.ColVAT, Type: Int, SQLType: "INT(2)", Default: "0"},
			Column{Name: domain.ColDiscount, Type: Int, SQLType: "INT(2)", Default: "0"},
			Column{Name: domain.ColTotalPrice, Type: Decimal, SQLType: "DECIMAL(7, 2)", Derived: true},
		),
		NewTable(domain.TablePurchase, domain.ColPurchID,
			pk(domain.ColPurchID),
			Column{Name: domain.ColProdID, Type: Int, SQLType: "INT(5)"},
			Column{Name: domain.ColProdQuant, Type: Int, SQLType: "INT(5)"},
			Column{Name: domain.ColPartner, Type: Int, SQLType: "INT(5)", Default: "0"},
			Column{Name: domain.ColPurchDate, Type: Date, SQLType: "DATE"},
			Column{Name: domain.ColInvNum, Type: String, SQLType: "VARCHAR(255)", Size: 255},
			Column{Name: domain.ColItemNetPrice, Type: Decimal, SQLType: "DECIMAL(6, 2)"},
			Column{Name: domain.ColVAT, Type: Int, SQLType: "INT(2)", Default: "0"},
			Column{Name: domain.ColDiscount, Type: Int, SQLType: "INT(2)", Default: "0"},
			Column{Name: domain.ColItemTotal, Type: Decimal, SQLType: "DECIMAL(7, 2)", Derived: true},
			Column{Name: domain.ColShipmentTotal, Type: Decimal, SQLType: "DECIMAL(9, 2)", Derived: true},
		),
		NewTable(domain.TableWarranty, domain.ColWarrID,
			pk(domain.ColWarrID),
			Column{Name: domain.ColWarrName, Type: String, SQLType: "VARCHAR(255)", Size: 255},
			Column{Name: domain.ColWarrTimeSpan, Type: Int, SQLType: "INT(3)"},
		),
		NewTable(domain.TableSoldItem, domain.ColSID,
			pk(domain.ColSID),
			Column{Name: domain.ColProdID, Type: Int, SQLType: "INT(5)"},
			Column{Name: domain.ColProdQuant, Type: Int, SQLType: "INT(3)"},
			Column{Name: domain.ColInvNum, Type: String, SQLType: "VARCHAR(255)", Size: 255},
			Column{Name: domain.ColSDate, Type: Date, SQLType: "DATE"},
			Column{Name: domain.ColSTotalPrice, Type: Decimal, SQLType: "DECIMAL(9, 2)", Derived: true},
			Column{Name: domain.ColWarrID, Type: Int, SQLType: "INT(5)", Default: "0"},
			Column{Name: domain.ColWarrStat, Type: Int, SQLType: "INT(1)", Default: "0", Parse: parseWarrantyStatus},
			Column{Name: domain.ColWarrQuant, Type: Int, SQLType: "INT(5)", Default: "0"},
			Column{Name: domain.ColWarrStart, Type: Date, SQLType: "DATE", Nullable: true},
			Column{Name: domain.ColWarrEnd, Type: Date, SQLType: "DATE", Nullable: true, Derived: true},
			Column{Name: domain.ColWarrDate, Type: Date, SQLType: "DATE", Nullable: true},
		),
		NewTable(domain.TablePartners, domain.ColPartnerID,
			pk(domain.ColPartnerID),
			Column{Name: domain.ColPartnerName, Type: String, SQLType: "VARCHAR(255)", Size: 255},
			Column{Name: domain.ColPartnerAddr, Type: String, SQLType: "VARCHAR(500)", Size: 500},
			Column{Name: domain.ColPartnerEmail, Type: String, SQLType: "VARCHAR(255)", Size: 255},
			Column{Name: domain.ColPartnerPhone, Type: String, SQLType: "VARCHAR(50)", Size: 50},
		),
	)
}
