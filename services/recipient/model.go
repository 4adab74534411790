package recipient

type Field string

const (
	FieldName           Field = "name"
	FieldPhone          Field = "phone"
	FieldRegion         Field = "region"
	FieldNeighborhood   Field = "neighborhood"
	FieldStreet         Field = "street"
	FieldBuildingNumber Field = "buildingNumber"
	FieldDeliveryDate   Field = "deliveryDate"
	FieldDeliveryTime   Field = "deliveryTime"
)

// FieldOrder is the order in which the form scrolls to errors; do not reorder
var FieldOrder = []Field{
	FieldName,
	FieldPhone,
	FieldRegion,
	FieldNeighborhood,
	FieldStreet,
	FieldBuildingNumber,
	FieldDeliveryDate,
	FieldDeliveryTime,
}

type Details struct {
	Name             string `json:"name" form:"name"`
	Phone            string `json:"phone" form:"phone"`
	Province         string `json:"province" form:"province"`
	District         string `json:"district" form:"district"`
	Neighborhood     string `json:"neighborhood" form:"neighborhood"`
	Street           string `json:"street" form:"street"`
	BuildingNumber   string `json:"buildingNumber" form:"buildingNumber"`
	ApartmentNumber  string `json:"apartmentNumber,omitempty" form:"apartmentNumber"`
	DeliveryDate     string `json:"deliveryDate" form:"deliveryDate"`
	DeliveryTime     string `json:"deliveryTime" form:"deliveryTime"`
	Notes            string `json:"notes,omitempty" form:"notes"`
	FromSavedAddress bool   `json:"fromSavedAddress,omitempty" form:"fromSavedAddress"`
}

type Result struct {
	Errors       map[Field]string `json:"errors"`
	FirstInvalid Field            `json:"firstInvalid,omitempty"`
	OK           bool             `json:"ok"`
}
