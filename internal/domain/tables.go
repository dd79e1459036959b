package domain

// Table names as stored.
const (
	TableProducts = "products"
	TablePrice    = "price"
	TablePurchase = "purchase"
	TableWarranty = "warranty"
	TableSoldItem = "soldItem"
	TablePartners = "partners"
)

// Column names shared across tables.
const (
	ColProdID        = "prodId"
	ColProdCode      = "prodCode"
	ColProdQuantTot  = "prodQuantTotal"
	ColPriceID       = "priceId"
	ColNetPrice      = "netPrice"
	ColVAT           = "VAT"
	ColDiscount      = "discount"
	ColTotalPrice    = "totalPrice"
	ColPurchID       = "purchId"
	ColProdQuant     = "prodQuant"
	ColPartner       = "partner"
	ColPurchDate     = "purchDate"
	ColInvNum        = "invNum"
	ColItemNetPrice  = "itemNetPrice"
	ColItemTotal     = "itemTotalPrice"
	ColShipmentTotal = "shipmentTotalPrice"
	ColWarrID        = "warrId"
	ColWarrName      = "warrName"
	ColWarrTimeSpan  = "warrTimeSpan"
	ColSID           = "sId"
	ColSDate         = "sDate"
	ColSTotalPrice   = "sTotalPrice"
	ColWarrStat      = "warrStat"
	ColWarrQuant     = "warrQuant"
	ColWarrStart     = "warrStartDate"
	ColWarrEnd       = "warrEndDate"
	ColWarrDate      = "warrDate"
	ColPartnerID     = "partnerId"
	ColPartnerName   = "partnerName"
	ColPartnerAddr   = "partnerAddress"
	ColPartnerEmail  = "partnerEmail"
	ColPartnerPhone  = "partnerPhone"

	// ColProductName is the denormalized product code attached to read results.
	ColProductName = "productName"
)

// DateLayout is the storage format of DATE columns.
const DateLayout = "2006-01-02"
